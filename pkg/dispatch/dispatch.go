// Package dispatch turns a user's free-text question into resolved charts
// and a summary, and maps every failure to one user-facing message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/drivers"
	"github.com/papercomputeco/pitwall/pkg/llm"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/metrics"
	"github.com/papercomputeco/pitwall/pkg/resolver"
)

// Extractor pulls query parameters out of text. A nil result means the
// text could not be understood.
type Extractor interface {
	Extract(ctx context.Context, text string) (*llm.Params, error)
}

// Summarizer writes the summary that accompanies the charts.
type Summarizer interface {
	Summarize(ctx context.Context, p llm.Params, refs []artifact.Ref) (string, error)
}

// Resolver resolves charts of one subject. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Result, error)
	ResolveAll(ctx context.Context, base resolver.Request, kinds ...artifact.Kind) ([]resolver.Result, error)
}

// DriverTable resolves a typed driver name.
type DriverTable interface {
	Lookup(alias string) (drivers.Driver, error)
}

// Stage is a progress step reported while a query is handled.
type Stage string

const (
	StageAnalyzing   Stage = "analyzing"
	StageGenerating  Stage = "generating"
	StageSummarizing Stage = "summarizing"
)

type progressKey struct{}

// ContextWithProgress returns a ctx under which Handle also reports every
// stage to fn, in addition to the Dispatcher-wide WithProgress callback.
func ContextWithProgress(ctx context.Context, fn func(Stage)) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress hands stage to the callback installed by
// ContextWithProgress, if any.
func ReportProgress(ctx context.Context, stage Stage) {
	if fn, ok := ctx.Value(progressKey{}).(func(Stage)); ok && fn != nil {
		fn(stage)
	}
}

// Query is one question from one user session.
type Query struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// ArtifactQuery asks for one chart directly, without text extraction.
type ArtifactQuery struct {
	Season int    `json:"season"`
	GP     string `json:"gp"`
	Driver string `json:"driver"`
	Kind   string `json:"kind"`
}

// Delivery is one chart handed to the front end.
type Delivery struct {
	Kind        artifact.Kind `json:"kind"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
}

// Reply is the answer to a Query.
type Reply struct {
	Params    llm.Params     `json:"params"`
	Driver    drivers.Driver `json:"driver"`
	Summary   string         `json:"summary"`
	Artifacts []Delivery     `json:"artifacts"`
}

// Dispatcher handles queries end to end.
type Dispatcher struct {
	extractor  Extractor
	summarizer Summarizer
	resolver   Resolver
	drivers    DriverTable
	throttle   *Throttle
	kinds      []artifact.Kind
	progress   func(Stage)
	logger     *slog.Logger
	metrics    *metrics.Manager
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSummarizer sets the summary writer. Without one, summaries are built
// from the chart captions.
func WithSummarizer(s Summarizer) Option {
	return func(d *Dispatcher) { d.summarizer = s }
}

// WithThrottle sets the per-session throttle.
func WithThrottle(t *Throttle) Option {
	return func(d *Dispatcher) { d.throttle = t }
}

// WithKinds limits the charts produced per query. Defaults to every kind.
func WithKinds(kinds ...artifact.Kind) Option {
	return func(d *Dispatcher) { d.kinds = kinds }
}

// WithProgress reports each stage of a query as it starts.
func WithProgress(fn func(Stage)) Option {
	return func(d *Dispatcher) { d.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records query outcomes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher.
func New(extractor Extractor, res Resolver, table DriverTable, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		extractor: extractor,
		resolver:  res,
		drivers:   table,
		kinds:     artifact.Kinds(),
		progress:  func(Stage) {},
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle answers q. Throttled, unparseable and unknown-driver queries fail
// before the store is touched.
func (d *Dispatcher) Handle(ctx context.Context, q Query) (reply *Reply, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(Classify(err))
		}
		d.metrics.IncQuery(outcome)
	}()

	if err := d.throttle.Allow(q.SessionID); err != nil {
		return nil, err
	}

	d.report(ctx, StageAnalyzing)
	params, err := d.extractor.Extract(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, ErrParse
	}

	driver, err := d.drivers.Lookup(params.Pilot)
	if err != nil {
		return nil, err
	}

	d.report(ctx, StageGenerating)
	base := resolver.Request{
		Season:       params.Year,
		GP:           params.Track,
		DriverCode:   driver.Code,
		DriverNumber: driver.Number,
	}
	results, err := d.resolver.ResolveAll(ctx, base, d.kinds...)
	if err != nil {
		d.logger.Error("query failed",
			"session", q.SessionID,
			"key", base.Key(),
			"kind", Classify(err),
			"error", err,
		)
		return nil, err
	}

	refs := make([]artifact.Ref, 0, len(results))
	deliveries := make([]Delivery, 0, len(results))
	for _, res := range results {
		refs = append(refs, res.Ref)
		deliveries = append(deliveries, Delivery{
			Kind:        res.Kind,
			Path:        res.Path,
			Description: res.Description,
		})
	}

	d.report(ctx, StageSummarizing)
	return &Reply{
		Params:    *params,
		Driver:    driver,
		Summary:   d.summarize(ctx, *params, refs),
		Artifacts: deliveries,
	}, nil
}

func (d *Dispatcher) report(ctx context.Context, stage Stage) {
	d.progress(stage)
	ReportProgress(ctx, stage)
}

// Resolve resolves one chart for a structured query. It is not throttled.
func (d *Dispatcher) Resolve(ctx context.Context, q ArtifactQuery) (resolver.Result, error) {
	kind, err := artifact.ParseKind(q.Kind)
	if err != nil {
		return resolver.Result{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	driver, err := d.drivers.Lookup(q.Driver)
	if err != nil {
		return resolver.Result{}, err
	}

	req := resolver.Request{
		Season:       q.Season,
		GP:           q.GP,
		DriverCode:   driver.Code,
		DriverNumber: driver.Number,
		Artifact:     kind,
	}
	res, err := d.resolver.Resolve(ctx, req)
	if err != nil {
		d.logger.Error("artifact query failed",
			"key", req.Key(),
			"kind", Classify(err),
			"error", err,
		)
		return resolver.Result{}, err
	}
	return res, nil
}

// summarize asks the Summarizer and falls back to the captions.
func (d *Dispatcher) summarize(ctx context.Context, p llm.Params, refs []artifact.Ref) string {
	if d.summarizer != nil {
		summary, err := d.summarizer.Summarize(ctx, p, refs)
		if err == nil {
			return summary
		}
		if errors.Is(err, context.Canceled) {
			d.logger.Debug("summary canceled", "error", err)
		} else {
			d.logger.Warn("summary failed, using captions", "error", err)
		}
	}
	return CaptionSummary(p, refs)
}

// CaptionSummary builds a summary from the chart captions alone.
func CaptionSummary(p llm.Params, refs []artifact.Ref) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %s at the %d %s Grand Prix:\n", p.Pilot, p.Year, p.Track)
	for _, ref := range refs {
		fmt.Fprintf(&b, "\n- %s", ref.Description)
	}
	return b.String()
}
