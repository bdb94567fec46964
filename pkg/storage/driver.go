// Package storage defines the persistent store for analysed events and the
// chart artifacts rendered for them.
package storage

import (
	"context"

	"github.com/papercomputeco/pitwall/pkg/artifact"
)

// Driver persists Events and their Artifacts. Implementations enforce the
// uniqueness and foreign key invariants themselves so that concurrent callers
// cannot create duplicates:
//   - at most one Event per (season, gp, driver)
//   - at most one Artifact per (event_id, name)
//   - every Artifact references an existing Event
type Driver interface {
	// FindEvent returns the Event for the triple, or a NotFoundError.
	FindEvent(ctx context.Context, season int, gp, driver string) (*Event, error)

	// InsertEvent creates an Event and returns its assigned id.
	// A second insert for the same triple fails with an error wrapping ErrDuplicate.
	InsertEvent(ctx context.Context, season int, gp, driver string) (int64, error)

	// FindArtifact returns the Artifact for (eventID, name), or a NotFoundError.
	FindArtifact(ctx context.Context, eventID int64, name artifact.Kind) (*Artifact, error)

	// InsertArtifact creates an Artifact and returns its assigned id.
	// Fails with an error wrapping ErrForeignKey when eventID does not exist and
	// ErrDuplicate when the (eventID, name) pair is already stored.
	InsertArtifact(ctx context.Context, eventID int64, name artifact.Kind, path, description string) (int64, error)

	// ListArtifacts returns every Artifact of an Event ordered by id.
	ListArtifacts(ctx context.Context, eventID int64) ([]*Artifact, error)

	// ListEvents returns every Event ordered by id.
	ListEvents(ctx context.Context) ([]*Event, error)

	// Close closes the store and releases any resources.
	Close() error
}
