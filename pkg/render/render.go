// Package render draws the analysis charts pitwall caches. Each chart is
// written to a deterministic PNG path under the media directory together with
// a one-line caption.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/telemetry"
)

var (
	// ErrNoSession is returned when the upstream has no session for the
	// requested season and track.
	ErrNoSession = telemetry.ErrNoSession

	// ErrNoData is returned when the session exists but cannot support the
	// chart, e.g. the driver did not take part.
	ErrNoData = telemetry.ErrNoData
)

// Source provides the session data charts are drawn from.
// *telemetry.Client implements it.
type Source interface {
	Race(ctx context.Context, season int, track string) (*telemetry.RaceSession, error)
	Qualifying(ctx context.Context, season int, track string) (*telemetry.QualifyingSession, error)
}

// Spec identifies one chart to render.
type Spec struct {
	Kind       artifact.Kind
	Season     int
	GP         string
	DriverCode string

	// DriverNumber finds the driver in a session that does not list
	// DriverCode. The file path always uses DriverCode.
	DriverNumber int
}

// Output is a rendered chart.
type Output struct {
	FilePath    string
	Description string
}

// Renderer renders charts from a Source into a media directory.
type Renderer struct {
	source   Source
	mediaDir string
	logger   *slog.Logger
	width    vg.Length
	height   vg.Length
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithSize sets the image size.
func WithSize(width, height vg.Length) Option {
	return func(r *Renderer) {
		r.width = width
		r.height = height
	}
}

// New creates a Renderer writing into mediaDir.
func New(source Source, mediaDir string, opts ...Option) *Renderer {
	r := &Renderer{
		source:   source,
		mediaDir: mediaDir,
		logger:   logger.Nop(),
		width:    8 * vg.Inch,
		height:   5 * vg.Inch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the file a spec renders to.
func (r *Renderer) Path(spec Spec) string {
	return artifact.FilePath(r.mediaDir, spec.Kind, spec.DriverCode, spec.GP, spec.Season)
}

// Render fetches the session data for spec, draws the chart and writes it
// to Path(spec). Rendering the same spec twice overwrites the same file.
func (r *Renderer) Render(ctx context.Context, spec Spec) (Output, error) {
	if !spec.Kind.Valid() {
		return Output{}, fmt.Errorf("unknown artifact kind: %q", spec.Kind)
	}
	spec.DriverCode = strings.ToUpper(spec.DriverCode)

	var (
		p           *plot.Plot
		description string
		err         error
	)
	switch spec.Kind {
	case artifact.RacePositionsChanges:
		p, description, err = r.positionsChanges(ctx, spec)
	case artifact.RaceLapsTimes:
		p, description, err = r.lapTimes(ctx, spec)
	case artifact.RaceLaptimesDistribution:
		p, description, err = r.lapTimesDistribution(ctx, spec)
	case artifact.QualyResults:
		p, description, err = r.qualifyingResults(ctx, spec)
	}
	if err != nil {
		return Output{}, err
	}

	path := r.Path(spec)
	if err := r.save(p, path); err != nil {
		return Output{}, err
	}

	r.logger.Info("rendered chart",
		"kind", spec.Kind,
		"season", spec.Season,
		"gp", spec.GP,
		"driver", spec.DriverCode,
		"path", path,
	)

	return Output{FilePath: path, Description: description}, nil
}

// save writes p next to path and renames it into place so a reader never
// observes a half-written image.
func (r *Renderer) save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ".png")+"-*.png")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := p.Save(r.width, r.height, tmpName); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("saving chart: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("moving chart into place: %w", err)
	}
	return nil
}

func noData(spec Spec, session, reason string) error {
	return &telemetry.SessionError{
		Season:  spec.Season,
		Track:   spec.GP,
		Session: session,
		Reason:  reason,
		Err:     ErrNoData,
	}
}
