package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession means the upstream has no session for the requested
	// season and track.
	ErrNoSession = errors.New("no session")

	// ErrNoData means the session exists but lacks the data a chart needs,
	// e.g. the driver did not take part or too few laps were timed.
	ErrNoData = errors.New("no data")

	// errNotFound is an upstream 404. It is not a breaker failure.
	errNotFound = errors.New("not found")
)

// SessionError describes which session lookup failed. It wraps ErrNoSession
// or ErrNoData.
type SessionError struct {
	Season  int
	Track   string
	Session string
	Reason  string
	Err     error
}

func (e *SessionError) Error() string {
	msg := fmt.Sprintf("%s for %d %s %s", e.Err, e.Season, e.Track, e.Session)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("telemetry API error (status %d) for %s: %s", e.Status, e.URL, e.Body)
}
