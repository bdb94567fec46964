package resolver

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for a request missing part of its key.
var ErrInvalidRequest = errors.New("invalid resolve request")

// GenerationError means the chart could not be rendered. Nothing was
// written to the store.
type GenerationError struct {
	Key string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Key, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// StoreError means the store failed. When Path is set the chart was
// rendered to Path before the failure, so the file exists but is not cached.
type StoreError struct {
	Key  string
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store %s for %s: %v", e.Op, e.Key, e.Err)
	if e.Path != "" {
		msg += fmt.Sprintf(" (rendered to %s, not cached)", e.Path)
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
