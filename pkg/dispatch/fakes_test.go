package dispatch_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/llm"
	"github.com/papercomputeco/pitwall/pkg/render"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

type fakeExtractor struct {
	params *llm.Params
	err    error
	calls  atomic.Int32
}

func (e *fakeExtractor) Extract(context.Context, string) (*llm.Params, error) {
	e.calls.Add(1)
	return e.params, e.err
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(context.Context, llm.Params, []artifact.Ref) (string, error) {
	return s.summary, s.err
}

// fakeGenerator writes a placeholder file per chart.
type fakeGenerator struct {
	dir   string
	err   error
	calls atomic.Int32
}

func (g *fakeGenerator) Path(spec render.Spec) string {
	return artifact.FilePath(g.dir, spec.Kind, spec.DriverCode, spec.GP, spec.Season)
}

func (g *fakeGenerator) Render(_ context.Context, spec render.Spec) (render.Output, error) {
	g.calls.Add(1)
	if g.err != nil {
		return render.Output{}, g.err
	}
	path := g.Path(spec)
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		return render.Output{}, err
	}
	return render.Output{
		FilePath:    path,
		Description: fmt.Sprintf("%s driver %s in the %d %s Grand Prix", spec.DriverCode, spec.Kind, spec.Season, spec.GP),
	}, nil
}

// countingStore counts every store call.
type countingStore struct {
	storage.Driver
	calls atomic.Int32
}

func (s *countingStore) FindEvent(ctx context.Context, season int, gp, driver string) (*storage.Event, error) {
	s.calls.Add(1)
	return s.Driver.FindEvent(ctx, season, gp, driver)
}

func (s *countingStore) InsertEvent(ctx context.Context, season int, gp, driver string) (int64, error) {
	s.calls.Add(1)
	return s.Driver.InsertEvent(ctx, season, gp, driver)
}

func (s *countingStore) FindArtifact(ctx context.Context, eventID int64, name artifact.Kind) (*storage.Artifact, error) {
	s.calls.Add(1)
	return s.Driver.FindArtifact(ctx, eventID, name)
}

func (s *countingStore) InsertArtifact(ctx context.Context, eventID int64, name artifact.Kind, path, description string) (int64, error) {
	s.calls.Add(1)
	return s.Driver.InsertArtifact(ctx, eventID, name, path, description)
}
