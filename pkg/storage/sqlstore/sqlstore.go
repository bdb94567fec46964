// Package sqlstore implements storage.Driver on top of a database/sql pool
// using ent's dialect-aware SQL builder. It is database-agnostic and is
// embedded by the sqlite and postgres drivers.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

const (
	eventsTable    = "events"
	artifactsTable = "artifacts"
)

var (
	eventColumns    = []string{"id", "season", "gp", "driver", "created_at"}
	artifactColumns = []string{"id", "event_id", "name", "path", "description", "created_at"}
)

// ClassifyFunc maps a backend specific constraint error onto
// storage.ErrDuplicate or storage.ErrForeignKey. It returns nil for any other
// error.
type ClassifyFunc func(err error) error

// Driver provides storage operations over an ent SQL driver.
// Every call acquires a connection from the pool and releases it before
// returning, no connection or cursor is shared between calls.
type Driver struct {
	drv      *entsql.Driver
	classify ClassifyFunc
	now      func() time.Time
}

// New wraps drv, creating the schema if it does not exist yet.
func New(ctx context.Context, drv *entsql.Driver, classify ClassifyFunc) (*Driver, error) {
	d := &Driver{
		drv:      drv,
		classify: classify,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if err := d.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return d, nil
}

// Dialect returns the SQL dialect of the underlying connection.
func (d *Driver) Dialect() string {
	return d.drv.Dialect()
}

func (d *Driver) migrate(ctx context.Context) error {
	for _, stmt := range schema(d.drv.Dialect()) {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}

// FindEvent returns the Event for the (season, gp, driver) triple.
func (d *Driver) FindEvent(ctx context.Context, season int, gp, driver string) (*storage.Event, error) {
	b := entsql.Dialect(d.drv.Dialect())
	query, args := b.Select(eventColumns...).
		From(b.Table(eventsTable)).
		Where(entsql.And(
			entsql.EQ("season", season),
			entsql.EQ("gp", gp),
			entsql.EQ("driver", driver),
		)).
		Limit(1).
		Query()

	events, err := d.queryEvents(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	if len(events) == 0 {
		return nil, storage.NotFoundError{Entity: "event", Key: storage.EventKey(season, gp, driver)}
	}

	return events[0], nil
}

// InsertEvent creates an Event and returns its id.
func (d *Driver) InsertEvent(ctx context.Context, season int, gp, driver string) (int64, error) {
	query, args := entsql.Dialect(d.drv.Dialect()).
		Insert(eventsTable).
		Columns("season", "gp", "driver", "created_at").
		Values(season, gp, driver, d.now()).
		Returning("id").
		Query()

	id, err := d.insertReturningID(ctx, query, args)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event %s: %w", storage.EventKey(season, gp, driver), err)
	}

	return id, nil
}

// FindArtifact returns the Artifact for (eventID, name).
func (d *Driver) FindArtifact(ctx context.Context, eventID int64, name artifact.Kind) (*storage.Artifact, error) {
	b := entsql.Dialect(d.drv.Dialect())
	query, args := b.Select(artifactColumns...).
		From(b.Table(artifactsTable)).
		Where(entsql.And(
			entsql.EQ("event_id", eventID),
			entsql.EQ("name", string(name)),
		)).
		Limit(1).
		Query()

	artifacts, err := d.queryArtifacts(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact: %w", err)
	}
	if len(artifacts) == 0 {
		return nil, storage.NotFoundError{Entity: "artifact", Key: storage.ArtifactKey(eventID, string(name))}
	}

	return artifacts[0], nil
}

// InsertArtifact creates an Artifact referencing eventID and returns its id.
func (d *Driver) InsertArtifact(ctx context.Context, eventID int64, name artifact.Kind, path, description string) (int64, error) {
	query, args := entsql.Dialect(d.drv.Dialect()).
		Insert(artifactsTable).
		Columns("event_id", "name", "path", "description", "created_at").
		Values(eventID, string(name), path, description, d.now()).
		Returning("id").
		Query()

	id, err := d.insertReturningID(ctx, query, args)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact %s: %w", storage.ArtifactKey(eventID, string(name)), err)
	}

	return id, nil
}

// ListArtifacts returns every Artifact of an Event.
func (d *Driver) ListArtifacts(ctx context.Context, eventID int64) ([]*storage.Artifact, error) {
	b := entsql.Dialect(d.drv.Dialect())
	query, args := b.Select(artifactColumns...).
		From(b.Table(artifactsTable)).
		Where(entsql.EQ("event_id", eventID)).
		OrderBy("id").
		Query()

	artifacts, err := d.queryArtifacts(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	return artifacts, nil
}

// ListEvents returns every Event.
func (d *Driver) ListEvents(ctx context.Context) ([]*storage.Event, error) {
	b := entsql.Dialect(d.drv.Dialect())
	query, args := b.Select(eventColumns...).
		From(b.Table(eventsTable)).
		OrderBy("id").
		Query()

	events, err := d.queryEvents(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// Close closes the underlying connection pool.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) queryEvents(ctx context.Context, query string, args []any) ([]*storage.Event, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*storage.Event
	for rows.Next() {
		e := &storage.Event{}
		if err := rows.Scan(&e.ID, &e.Season, &e.GP, &e.Driver, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (d *Driver) queryArtifacts(ctx context.Context, query string, args []any) ([]*storage.Artifact, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*storage.Artifact
	for rows.Next() {
		var (
			a    = &storage.Artifact{}
			name string
		)
		if err := rows.Scan(&a.ID, &a.EventID, &name, &a.Path, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Name = artifact.Kind(name)
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// insertReturningID runs an INSERT ... RETURNING id statement and maps
// constraint failures onto the storage sentinels.
func (d *Driver) insertReturningID(ctx context.Context, query string, args []any) (int64, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, d.wrap(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, d.wrap(err)
		}
		return 0, errors.New("insert returned no id")
	}

	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, d.wrap(err)
	}

	return id, d.wrap(rows.Err())
}

func (d *Driver) wrap(err error) error {
	if err == nil {
		return nil
	}
	if d.classify != nil {
		if sentinel := d.classify(err); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	return err
}

// schema returns the idempotent DDL for the given dialect.
func schema(name string) []string {
	switch name {
	case dialect.Postgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS events (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				season INTEGER NOT NULL,
				gp VARCHAR(100) NOT NULL,
				driver VARCHAR(100) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				CONSTRAINT events_season_gp_driver_key UNIQUE (season, gp, driver)
			)`,
			`CREATE TABLE IF NOT EXISTS artifacts (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				event_id BIGINT NOT NULL REFERENCES events (id),
				name VARCHAR(100) NOT NULL,
				path TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				CONSTRAINT artifacts_event_id_name_key UNIQUE (event_id, name)
			)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				season INTEGER NOT NULL,
				gp TEXT NOT NULL,
				driver TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				UNIQUE (season, gp, driver)
			)`,
			`CREATE TABLE IF NOT EXISTS artifacts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id INTEGER NOT NULL REFERENCES events (id),
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				UNIQUE (event_id, name)
			)`,
		}
	}
}
