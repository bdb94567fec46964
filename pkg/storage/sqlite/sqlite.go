// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/pitwall/pkg/storage"
	"github.com/papercomputeco/pitwall/pkg/storage/sqlstore"
)

const memoryPath = ":memory:"

// Driver implements storage.Driver using SQLite via the shared sqlstore driver.
type Driver struct {
	*sqlstore.Driver
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3").
	// Foreign keys are enabled per connection through the DSN so every pooled
	// connection enforces them, not just the first one.
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every new connection to ":memory:" would be a fresh, empty database.
	if dbPath == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	store, err := sqlstore.New(ctx, drv, classify)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Driver{Driver: store}, nil
}

func dsn(dbPath string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if dbPath == memoryPath {
		return "file::memory:?" + params
	}
	if strings.Contains(dbPath, "?") {
		return "file:" + dbPath + "&" + params
	}
	return "file:" + dbPath + "?" + params
}

// classify maps SQLite constraint errors onto the storage sentinels.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return storage.ErrDuplicate
	case sqlite3.ErrConstraintForeignKey:
		return storage.ErrForeignKey
	default:
		return nil
	}
}
