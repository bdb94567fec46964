// Package inmemory provides a map-backed storage driver. It applies the same
// constraint semantics as the SQL drivers and is used for tests and for
// zero-config runs.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

type eventKey struct {
	season int
	gp     string
	driver string
}

type artifactKey struct {
	eventID int64
	name    artifact.Kind
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex guarding every map below
	mu sync.RWMutex

	nextEventID    int64
	nextArtifactID int64

	events         map[int64]*storage.Event
	eventsByKey    map[eventKey]int64
	artifacts      map[int64]*storage.Artifact
	artifactsByKey map[artifactKey]int64
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		events:         make(map[int64]*storage.Event),
		eventsByKey:    make(map[eventKey]int64),
		artifacts:      make(map[int64]*storage.Artifact),
		artifactsByKey: make(map[artifactKey]int64),
	}
}

// FindEvent returns the Event for the triple.
func (s *Driver) FindEvent(_ context.Context, season int, gp, driver string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.eventsByKey[eventKey{season, gp, driver}]
	if !ok {
		return nil, storage.NotFoundError{Entity: "event", Key: storage.EventKey(season, gp, driver)}
	}

	e := *s.events[id]
	return &e, nil
}

// InsertEvent creates an Event, failing with storage.ErrDuplicate when the
// triple is already stored.
func (s *Driver) InsertEvent(_ context.Context, season int, gp, driver string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{season, gp, driver}
	if _, ok := s.eventsByKey[key]; ok {
		return 0, fmt.Errorf("failed to insert event %s: %w", storage.EventKey(season, gp, driver), storage.ErrDuplicate)
	}

	s.nextEventID++
	id := s.nextEventID
	s.events[id] = &storage.Event{
		ID:        id,
		Season:    season,
		GP:        gp,
		Driver:    driver,
		CreatedAt: time.Now().UTC(),
	}
	s.eventsByKey[key] = id

	return id, nil
}

// FindArtifact returns the Artifact for (eventID, name).
func (s *Driver) FindArtifact(_ context.Context, eventID int64, name artifact.Kind) (*storage.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.artifactsByKey[artifactKey{eventID, name}]
	if !ok {
		return nil, storage.NotFoundError{Entity: "artifact", Key: storage.ArtifactKey(eventID, string(name))}
	}

	a := *s.artifacts[id]
	return &a, nil
}

// InsertArtifact creates an Artifact referencing an existing Event.
func (s *Driver) InsertArtifact(_ context.Context, eventID int64, name artifact.Kind, path, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return 0, fmt.Errorf("failed to insert artifact %s: %w", storage.ArtifactKey(eventID, string(name)), storage.ErrForeignKey)
	}

	key := artifactKey{eventID, name}
	if _, ok := s.artifactsByKey[key]; ok {
		return 0, fmt.Errorf("failed to insert artifact %s: %w", storage.ArtifactKey(eventID, string(name)), storage.ErrDuplicate)
	}

	s.nextArtifactID++
	id := s.nextArtifactID
	s.artifacts[id] = &storage.Artifact{
		ID:          id,
		EventID:     eventID,
		Name:        name,
		Path:        path,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.artifactsByKey[key] = id

	return id, nil
}

// ListArtifacts returns every Artifact of an Event ordered by id.
func (s *Driver) ListArtifacts(_ context.Context, eventID int64) ([]*storage.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.Artifact
	for _, a := range s.artifacts {
		if a.EventID == eventID {
			cp := *a
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListEvents returns every Event ordered by id.
func (s *Driver) ListEvents(_ context.Context) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}
