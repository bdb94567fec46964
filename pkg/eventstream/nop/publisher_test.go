package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/eventstream"
	"github.com/papercomputeco/pitwall/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var p *nop.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("returns ErrNilArtifactEvent for nil events", func() {
		Expect(p.PublishArtifact(context.Background(), nil)).To(MatchError(eventstream.ErrNilArtifactEvent))
	})

	It("succeeds for non-nil events", func() {
		Expect(p.PublishArtifact(context.Background(), &eventstream.ArtifactCreatedEvent{})).To(Succeed())
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
