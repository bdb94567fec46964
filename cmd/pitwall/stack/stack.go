package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"github.com/papercomputeco/pitwall/pkg/credentials"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/eventstream"
	"github.com/papercomputeco/pitwall/pkg/eventstream/kafka"
	"github.com/papercomputeco/pitwall/pkg/eventstream/nop"
	"github.com/papercomputeco/pitwall/pkg/llm"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/metrics"
	"github.com/papercomputeco/pitwall/pkg/render"
	"github.com/papercomputeco/pitwall/pkg/resolver"
	"github.com/papercomputeco/pitwall/pkg/storage"
	"github.com/papercomputeco/pitwall/pkg/storage/inmemory"
	"github.com/papercomputeco/pitwall/pkg/storage/postgres"
	"github.com/papercomputeco/pitwall/pkg/storage/sqlite"
	"github.com/papercomputeco/pitwall/pkg/telemetry"
)

// Stack is a fully wired pitwall.
type Stack struct {
	Settings   *Settings
	Store      storage.Driver
	Publisher  eventstream.Publisher
	Resolver   *resolver.Resolver
	Dispatcher *dispatch.Dispatcher
}

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Manager
	progress func(dispatch.Stage)
	caller   llm.CallFunc
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records resolver, dispatcher and breaker metrics on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(o *options) { o.metrics = m }
}

// WithProgress reports dispatcher stages to fn.
func WithProgress(fn func(dispatch.Stage)) Option {
	return func(o *options) { o.progress = fn }
}

// WithCaller replaces the configured LLM provider.
func WithCaller(call llm.CallFunc) Option {
	return func(o *options) { o.caller = call }
}

// New opens the store and event stream and wires the resolver and
// dispatcher on top of them. Close releases both.
func New(ctx context.Context, s *Settings, opts ...Option) (*Stack, error) {
	o := &options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	store, err := OpenStore(ctx, s, o.logger)
	if err != nil {
		return nil, err
	}

	pub, err := NewPublisher(s, o.logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	call := o.caller
	if call == nil {
		creds, err := credentials.NewManager(s.Dir)
		if err != nil {
			o.logger.Warn("credentials unavailable", "error", err)
		}
		call, err = llm.NewCaller(llm.CallerConfig{
			Provider:    s.LLM.Provider,
			Model:       s.LLM.Model,
			BaseURL:     s.LLM.BaseURL,
			Credentials: creds,
			Logger:      o.logger,
		})
		if err != nil {
			pub.Close()
			store.Close()
			return nil, fmt.Errorf("creating llm caller: %w", err)
		}
	}

	m := o.metrics
	source := telemetry.NewClient(
		telemetry.WithBaseURL(s.Telemetry.BaseURL),
		telemetry.WithTimeout(s.Timeout),
		telemetry.WithLogger(o.logger),
		telemetry.WithStateHook(func(name string, _, to gobreaker.State) {
			m.SetBreakerState(name, float64(to))
		}),
	)
	renderer := render.New(source, s.MediaDir, render.WithLogger(o.logger))

	res := resolver.New(store, renderer,
		resolver.WithLogger(o.logger),
		resolver.WithMetrics(m),
		resolver.WithPublisher(pub),
	)

	dopts := []dispatch.Option{
		dispatch.WithSummarizer(llm.NewSummarizer(call, llm.WithLogger(o.logger))),
		dispatch.WithThrottle(dispatch.NewThrottle(s.Throttle)),
		dispatch.WithLogger(o.logger),
		dispatch.WithMetrics(m),
	}
	if o.progress != nil {
		dopts = append(dopts, dispatch.WithProgress(o.progress))
	}
	d := dispatch.New(llm.NewExtractor(call, llm.WithLogger(o.logger)), res, s.Drivers, dopts...)

	return &Stack{
		Settings:   s,
		Store:      store,
		Publisher:  pub,
		Resolver:   res,
		Dispatcher: d,
	}, nil
}

// Close releases the event stream and the store.
func (s *Stack) Close() error {
	return errors.Join(s.Publisher.Close(), s.Store.Close())
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, s *Settings, log *slog.Logger) (storage.Driver, error) {
	switch s.Storage.Backend {
	case "memory":
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "postgres":
		if s.Storage.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires storage.postgres_dsn")
		}
		driver, err := postgres.NewDriver(ctx, s.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case "", "sqlite":
		driver, err := sqlite.NewDriver(ctx, s.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", s.Storage.SQLitePath)
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", s.Storage.Backend)
	}
}

// NewPublisher returns the configured artifact event publisher.
func NewPublisher(s *Settings, log *slog.Logger) (eventstream.Publisher, error) {
	switch s.EventStream.Provider {
	case "", "none":
		return nop.NewPublisher(), nil

	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: s.EventStream.BrokerList(),
			Topic:   s.EventStream.Topic,
		}, kafka.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing artifact events to kafka",
			"brokers", s.EventStream.Brokers,
			"topic", s.EventStream.Topic,
		)
		return pub, nil

	default:
		return nil, fmt.Errorf("unsupported event stream provider: %q", s.EventStream.Provider)
	}
}
