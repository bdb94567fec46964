// Package resolver decides whether a requested chart is already cached and,
// when it is not, renders it once and records it in the store.
//
// Consistency across concurrent callers, in this process or another, comes
// from the store's unique constraints: a losing insert re-reads the winning
// row instead of failing. No store transaction is held while rendering.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/eventstream"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/metrics"
	"github.com/papercomputeco/pitwall/pkg/render"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

// Generator renders one chart. *render.Renderer implements it.
// Path must return the file Render writes spec to.
type Generator interface {
	Render(ctx context.Context, spec render.Spec) (render.Output, error)
	Path(spec render.Spec) string
}

// Request identifies one chart of one (season, gp, driver) subject.
type Request struct {
	Season       int
	GP           string
	DriverCode   string
	DriverNumber int
	Artifact     artifact.Kind
}

// Key is the request's cache key, used for logging and in-process dedupe.
func (r Request) Key() string {
	return fmt.Sprintf("%s/%s", storage.EventKey(r.Season, r.GP, r.DriverCode), r.Artifact)
}

func (r Request) validate() error {
	switch {
	case r.Season <= 0:
		return fmt.Errorf("%w: season must be positive", ErrInvalidRequest)
	case strings.TrimSpace(r.GP) == "":
		return fmt.Errorf("%w: gp is required", ErrInvalidRequest)
	case strings.TrimSpace(r.DriverCode) == "":
		return fmt.Errorf("%w: driver is required", ErrInvalidRequest)
	case !r.Artifact.Valid():
		return fmt.Errorf("%w: unknown artifact kind %q", ErrInvalidRequest, r.Artifact)
	}
	return nil
}

func (r Request) spec() render.Spec {
	return render.Spec{
		Kind:         r.Artifact,
		Season:       r.Season,
		GP:           r.GP,
		DriverCode:   r.DriverCode,
		DriverNumber: r.DriverNumber,
	}
}

// Result is a resolved chart and how it was obtained.
type Result struct {
	artifact.Ref

	// State is the lookup state the request started from.
	State State `json:"state"`

	// Created is true when this call rendered and stored the chart.
	Created bool `json:"created"`

	// Regenerated is true when a cached row's file was missing and had to be
	// rendered again.
	Regenerated bool `json:"regenerated"`
}

// Resolver coordinates the store and the generator.
type Resolver struct {
	store     storage.Driver
	generator Generator
	logger    *slog.Logger
	metrics   *metrics.Manager
	publisher eventstream.Publisher
	group     singleflight.Group
	fileOK    func(path string) bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records resolution metrics on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithPublisher publishes an event for every newly stored chart.
func WithPublisher(p eventstream.Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// New creates a Resolver.
func New(store storage.Driver, generator Generator, opts ...Option) *Resolver {
	r := &Resolver{
		store:     store,
		generator: generator,
		logger:    logger.Nop(),
		fileOK:    readable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup reports whether req's event and artifact exist.
func (r *Resolver) Lookup(ctx context.Context, req Request) (Lookup, error) {
	event, err := r.store.FindEvent(ctx, req.Season, req.GP, req.DriverCode)
	if storage.IsNotFound(err) {
		return Lookup{State: StateMiss}, nil
	}
	if err != nil {
		return Lookup{}, err
	}

	a, err := r.store.FindArtifact(ctx, event.ID, req.Artifact)
	if storage.IsNotFound(err) {
		return Lookup{State: StateEventOnly, Event: event}, nil
	}
	if err != nil {
		return Lookup{}, err
	}

	return Lookup{State: StateHit, Event: event, Artifact: a}, nil
}

// Resolve returns the cached chart for req, rendering and storing it first
// if needed. Identical concurrent calls in this process share one render.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	req.DriverCode = strings.ToUpper(strings.TrimSpace(req.DriverCode))
	req.GP = strings.TrimSpace(req.GP)
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	ch := r.group.DoChan(req.Key(), func() (any, error) {
		// Shared by every waiting caller, so no single caller may cancel it.
		return r.resolve(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

// ResolveAll resolves each kind for one subject in order. It stops at the
// first failure and returns the results gathered so far.
func (r *Resolver) ResolveAll(ctx context.Context, base Request, kinds ...artifact.Kind) ([]Result, error) {
	if len(kinds) == 0 {
		kinds = artifact.Kinds()
	}

	results := make([]Result, 0, len(kinds))
	for _, kind := range kinds {
		req := base
		req.Artifact = kind

		res, err := r.Resolve(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	key := req.Key()

	lookup, err := r.Lookup(ctx, req)
	if err != nil {
		r.metrics.ObserveResolution("unknown", "store_failure", time.Since(start))
		return Result{}, &StoreError{Key: key, Op: "lookup", Err: err}
	}

	var res Result
	switch lookup.State {
	case StateHit:
		res, err = r.hit(ctx, req, lookup.Artifact)
	case StateEventOnly:
		res, err = r.generate(ctx, req, lookup.Event)
	default:
		res, err = r.generate(ctx, req, nil)
	}
	res.State = lookup.State

	r.metrics.ObserveResolution(lookup.State.String(), outcome(err), time.Since(start))
	if err != nil {
		r.logger.Error("resolve failed",
			"key", key,
			"state", lookup.State.String(),
			"error", err,
		)
		return Result{}, err
	}

	r.logger.Debug("resolved artifact",
		"key", key,
		"state", lookup.State.String(),
		"created", res.Created,
		"regenerated", res.Regenerated,
		"path", res.Path,
	)
	return res, nil
}

// hit serves a cached row. A row whose file has gone missing is rendered
// again to its deterministic path; the row itself is immutable.
func (r *Resolver) hit(ctx context.Context, req Request, a *storage.Artifact) (Result, error) {
	if r.fileOK(a.Path) {
		return Result{Ref: a.Ref()}, nil
	}

	// A row written under an older media directory keeps its old path, so
	// an earlier regeneration may already sit at the current one.
	if path := r.generator.Path(req.spec()); path != a.Path && r.fileOK(path) {
		ref := a.Ref()
		ref.Path = path
		return Result{Ref: ref}, nil
	}

	r.logger.Warn("cached artifact file missing, regenerating",
		"key", req.Key(),
		"path", a.Path,
	)

	out, _, err := r.render(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if out.FilePath != a.Path {
		r.logger.Warn("regenerated artifact path differs from cached row",
			"key", req.Key(),
			"cached", a.Path,
			"rendered", out.FilePath,
		)
	}

	ref := a.Ref()
	ref.Path = out.FilePath
	return Result{Ref: ref, Regenerated: true}, nil
}

// generate renders the chart, then records the event (when event is nil)
// and the artifact.
func (r *Resolver) generate(ctx context.Context, req Request, event *storage.Event) (Result, error) {
	key := req.Key()

	out, took, err := r.render(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if event == nil {
		event, err = r.ensureEvent(ctx, req)
		if err != nil {
			return Result{}, &StoreError{Key: key, Op: "insert event", Path: out.FilePath, Err: err}
		}
	}

	id, err := r.store.InsertArtifact(ctx, event.ID, req.Artifact, out.FilePath, out.Description)
	if errors.Is(err, storage.ErrDuplicate) {
		// A concurrent caller stored the same chart first. Its row wins.
		r.metrics.IncStoreConflict("artifact")
		winner, ferr := r.store.FindArtifact(ctx, event.ID, req.Artifact)
		if ferr != nil {
			return Result{}, &StoreError{Key: key, Op: "refetch artifact", Path: out.FilePath, Err: ferr}
		}
		return Result{Ref: winner.Ref()}, nil
	}
	if err != nil {
		return Result{}, &StoreError{Key: key, Op: "insert artifact", Path: out.FilePath, Err: err}
	}

	r.publish(ctx, event, id, req, out, took)

	return Result{
		Ref: artifact.Ref{
			Kind:        req.Artifact,
			Path:        out.FilePath,
			Description: out.Description,
		},
		Created: true,
	}, nil
}

// ensureEvent inserts the event row, or returns the row a concurrent caller
// inserted first.
func (r *Resolver) ensureEvent(ctx context.Context, req Request) (*storage.Event, error) {
	id, err := r.store.InsertEvent(ctx, req.Season, req.GP, req.DriverCode)
	if err == nil {
		return &storage.Event{ID: id, Season: req.Season, GP: req.GP, Driver: req.DriverCode}, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, err
	}

	r.metrics.IncStoreConflict("event")
	return r.store.FindEvent(ctx, req.Season, req.GP, req.DriverCode)
}

func (r *Resolver) render(ctx context.Context, req Request) (render.Output, time.Duration, error) {
	start := time.Now()
	out, err := r.generator.Render(ctx, req.spec())
	took := time.Since(start)

	r.metrics.ObserveGeneration(string(req.Artifact), err, took)
	if err != nil {
		return render.Output{}, took, &GenerationError{Key: req.Key(), Err: err}
	}
	return out, took, nil
}

func (r *Resolver) publish(ctx context.Context, event *storage.Event, artifactID int64, req Request, out render.Output, took time.Duration) {
	if r.publisher == nil {
		return
	}

	ev := eventstream.NewArtifactCreatedEvent(
		eventstream.Subject{
			StoreEventID: event.ID,
			Season:       req.Season,
			GP:           req.GP,
			Driver:       req.DriverCode,
		},
		eventstream.ArtifactPayload{
			ID:          artifactID,
			Kind:        string(req.Artifact),
			Path:        out.FilePath,
			Description: out.Description,
		},
		took,
	)
	if err := r.publisher.PublishArtifact(ctx, ev); err != nil {
		r.logger.Warn("failed to publish artifact event",
			"key", req.Key(),
			"error", err,
		)
	}
}

func outcome(err error) string {
	var (
		genErr   *GenerationError
		storeErr *StoreError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &genErr):
		return "generation_failure"
	case errors.As(err, &storeErr):
		return "store_failure"
	default:
		return "failure"
	}
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
