package eventstream_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("stamps id, type and emission time", func() {
		event := eventstream.NewArtifactCreatedEvent(
			eventstream.Subject{StoreEventID: 1, Season: 2025, GP: "Imola", Driver: "COL"},
			eventstream.ArtifactPayload{ID: 2, Kind: "qualy_results", Path: "/media/q.png", Description: "qualy"},
			1500*time.Millisecond,
		)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeArtifactCreated))
		Expect(uuid.Validate(event.EventID)).To(Succeed())
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Minute))
		Expect(event.RenderMs).To(Equal(int64(1500)))
	})

	It("marshals with the expected top-level keys", func() {
		event := eventstream.NewArtifactCreatedEvent(eventstream.Subject{}, eventstream.ArtifactPayload{}, 0)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("subject"))
		Expect(got).To(HaveKey("artifact"))
	})

	It("provides ErrNilArtifactEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilArtifactEvent).To(MatchError("nil artifact event"))
	})
})
