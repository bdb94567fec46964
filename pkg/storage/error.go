package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is wrapped by insert errors that hit a unique constraint.
	ErrDuplicate = errors.New("duplicate row")

	// ErrForeignKey is wrapped by insert errors that reference a missing row.
	ErrForeignKey = errors.New("foreign key violation")
)

// NotFoundError is returned when an event or artifact doesn't exist in the store.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}

	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// EventKey formats the lookup key of an event for errors and logs.
func EventKey(season int, gp, driver string) string {
	return fmt.Sprintf("%d/%s/%s", season, gp, driver)
}

// ArtifactKey formats the lookup key of an artifact for errors and logs.
func ArtifactKey(eventID int64, name string) string {
	return fmt.Sprintf("%d/%s", eventID, name)
}
