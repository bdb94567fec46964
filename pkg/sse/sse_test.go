package sse_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/sse"
)

func readAll(r *sse.Reader) []sse.Event {
	var events []sse.Event
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return events
		}
		events = append(events, *ev)
	}
}

var _ = Describe("Reader", func() {
	DescribeTable("parses streams",
		func(stream string, expected []sse.Event) {
			Expect(readAll(sse.NewReader(strings.NewReader(stream)))).To(Equal(expected))
		},
		Entry("a single event", "data: hello\n\n",
			[]sse.Event{{Data: "hello"}}),
		Entry("typed events with ids", "id: 1\nevent: stage\ndata: analyzing\n\nevent: stage\ndata: generating\n\n",
			[]sse.Event{{ID: "1", Type: "stage", Data: "analyzing"}, {Type: "stage", Data: "generating"}}),
		Entry("multi-line data", "data: a\ndata: b\n\n",
			[]sse.Event{{Data: "a\nb"}}),
		Entry("comments and keep-alives", ": ping\n\n\ndata: x\n\n",
			[]sse.Event{{Data: "x"}}),
		Entry("no space after the colon", "event:reply\ndata:{}\n\n",
			[]sse.Event{{Type: "reply", Data: "{}"}}),
		Entry("unknown fields", "retry: 1000\nfoo\ndata: y\n\n",
			[]sse.Event{{Data: "y"}}),
		Entry("a stream without a trailing blank line", "data: last",
			[]sse.Event{{Data: "last"}}),
		Entry("an empty stream", "", nil),
	)

	It("copies the raw stream to the destination", func() {
		stream := "event: stage\ndata: analyzing\n\n: comment\n\n"
		var dst bytes.Buffer
		readAll(sse.NewTeeReader(strings.NewReader(stream), &dst))
		Expect(dst.String()).To(Equal(stream))
	})

	It("returns destination write errors", func() {
		r := sse.NewTeeReader(strings.NewReader("data: x\n\n"), failingWriter{})
		_, err := r.Next()
		Expect(err).To(MatchError("closed"))
	})
})

var _ = Describe("Write", func() {
	It("round-trips through the reader", func() {
		events := []sse.Event{
			{Type: "stage", Data: "generating"},
			{ID: "7", Type: "reply", Data: "line one\nline two"},
			{Data: ""},
		}

		var buf bytes.Buffer
		for _, ev := range events {
			Expect(sse.Write(&buf, ev)).To(Succeed())
		}
		Expect(buf.String()).To(HavePrefix("event: stage\ndata: generating\n\n"))

		Expect(readAll(sse.NewReader(&buf))).To(Equal(events))
	})
})

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }
