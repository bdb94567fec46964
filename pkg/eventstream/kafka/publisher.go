// Package kafka publishes artifact events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/pitwall/pkg/eventstream"
	"github.com/papercomputeco/pitwall/pkg/logger"
)

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds one publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by the analysed subject so
// every event of a (season, gp, driver) lands on the same partition.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// withWriter replaces the Kafka writer. Used by tests.
func withWriter(w messageWriter) Option {
	return func(p *Publisher) { p.writer = w }
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	p := &Publisher{
		topic:   cfg.Topic,
		timeout: cfg.WriteTimeout,
		logger:  logger.Nop(),
	}
	if p.timeout <= 0 {
		p.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
	}

	return p, nil
}

// PublishArtifact encodes event as JSON and writes it synchronously.
func (p *Publisher) PublishArtifact(ctx context.Context, event *eventstream.ArtifactCreatedEvent) error {
	if event == nil {
		return eventstream.ErrNilArtifactEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding artifact event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(subjectKey(event.Subject)),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing artifact event to %s: %w", p.topic, err)
	}

	p.logger.Debug("published artifact event",
		"topic", p.topic,
		"event_id", event.EventID,
		"kind", event.Artifact.Kind,
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func subjectKey(s eventstream.Subject) string {
	return fmt.Sprintf("%d/%s/%s", s.Season, s.GP, s.Driver)
}
