package resolver

import "github.com/papercomputeco/pitwall/pkg/storage"

// State is the result of looking a request up in the store.
type State int

const (
	// StateMiss means no event exists for the subject.
	StateMiss State = iota

	// StateEventOnly means the event exists but this chart was never stored.
	StateEventOnly

	// StateHit means the chart is stored.
	StateHit
)

func (s State) String() string {
	switch s {
	case StateMiss:
		return "miss"
	case StateEventOnly:
		return "event_only"
	case StateHit:
		return "hit"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Lookup is the store's view of a request. Event is set for StateEventOnly
// and StateHit, Artifact only for StateHit.
type Lookup struct {
	State    State
	Event    *storage.Event
	Artifact *storage.Artifact
}
