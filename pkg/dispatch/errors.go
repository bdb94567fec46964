package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/pitwall/pkg/drivers"
	"github.com/papercomputeco/pitwall/pkg/render"
	"github.com/papercomputeco/pitwall/pkg/resolver"
)

var (
	// ErrParse means no complete query could be extracted from the text.
	ErrParse = errors.New("could not understand the question")

	// ErrStaleArtifact means a resolved chart's file is gone at delivery time.
	ErrStaleArtifact = errors.New("artifact file no longer exists")
)

// ThrottledError rejects a query that came too soon after the session's
// previous one.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled, retry in %s", e.RetryAfter.Round(time.Second))
}

// Kind classifies a failure for the user and for metrics.
type Kind string

const (
	KindThrottled     Kind = "throttled"
	KindParse         Kind = "parse"
	KindUnknownDriver Kind = "unknown_driver"
	KindGeneration    Kind = "generation"
	KindStore         Kind = "store"
	KindStaleArtifact Kind = "stale_artifact"
	KindInternal      Kind = "internal"
)

// Classify maps err to its failure kind.
func Classify(err error) Kind {
	var (
		throttled *ThrottledError
		genErr    *resolver.GenerationError
		storeErr  *resolver.StoreError
	)
	switch {
	case errors.As(err, &throttled):
		return KindThrottled
	case errors.Is(err, ErrParse), errors.Is(err, resolver.ErrInvalidRequest):
		return KindParse
	case errors.Is(err, drivers.ErrUnknownDriver):
		return KindUnknownDriver
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.As(err, &storeErr):
		return KindStore
	case errors.Is(err, ErrStaleArtifact):
		return KindStaleArtifact
	default:
		return KindInternal
	}
}

// Message returns the one user-facing message for err's failure kind.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch Classify(err) {
	case KindThrottled:
		var throttled *ThrottledError
		errors.As(err, &throttled)
		return fmt.Sprintf("Wait %s before your next question, not even Franco is that quick!",
			throttled.RetryAfter.Round(time.Second))
	case KindParse:
		return "I couldn't understand your question. Try naming the driver, the circuit and the year."
	case KindUnknownDriver:
		var unknown drivers.UnknownDriverError
		errors.As(err, &unknown)
		return fmt.Sprintf("I don't know the driver %q. Try their surname or three-letter code.", unknown.Alias)
	case KindGeneration:
		var genErr *resolver.GenerationError
		errors.As(err, &genErr)
		switch {
		case errors.Is(err, render.ErrNoSession):
			return fmt.Sprintf("There's no session data for that race: %v", genErr.Err)
		case errors.Is(err, render.ErrNoData):
			return fmt.Sprintf("There isn't enough data for that analysis: %v", genErr.Err)
		}
		return fmt.Sprintf("I couldn't generate the analysis: %v", genErr.Err)
	case KindStore:
		return "The analysis was generated but could not be saved. Please try again."
	case KindStaleArtifact:
		return "One of the charts is no longer available. Ask again to regenerate it."
	default:
		return "Something went wrong while processing your question."
	}
}
