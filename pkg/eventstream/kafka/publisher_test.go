package kafka_test

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/pitwall/pkg/eventstream"
	"github.com/papercomputeco/pitwall/pkg/eventstream/kafka"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &recordingWriter{}

		var err error
		publisher, err = kafka.NewPublisher(
			kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "pitwall.artifacts"},
			kafka.WithWriter(writer),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes a JSON message keyed by subject", func() {
		event := eventstream.NewArtifactCreatedEvent(
			eventstream.Subject{StoreEventID: 1, Season: 2025, GP: "Imola", Driver: "COL"},
			eventstream.ArtifactPayload{ID: 7, Kind: "qualy_results"},
			time.Second,
		)

		Expect(publisher.PublishArtifact(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("2025/Imola/COL"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeArtifactCreated)}))

		var decoded eventstream.ArtifactCreatedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Artifact.ID).To(Equal(int64(7)))
	})

	It("rejects nil events", func() {
		Expect(publisher.PublishArtifact(context.Background(), nil)).To(MatchError(eventstream.ErrNilArtifactEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("broker down")

		err := publisher.PublishArtifact(context.Background(), eventstream.NewArtifactCreatedEvent(eventstream.Subject{}, eventstream.ArtifactPayload{}, 0))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
		Expect(err).To(MatchError(ContainSubstring("pitwall.artifacts")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})

	It("requires brokers and a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())

		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"b:9092"}})
		Expect(err).To(HaveOccurred())
	})
})
