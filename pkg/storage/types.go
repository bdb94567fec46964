package storage

import (
	"time"

	"github.com/papercomputeco/pitwall/pkg/artifact"
)

// Event is one (season, circuit, driver) subject under analysis.
type Event struct {
	ID        int64     `json:"id"`
	Season    int       `json:"season"`
	GP        string    `json:"gp"`
	Driver    string    `json:"driver"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is one rendered chart belonging to an Event.
type Artifact struct {
	ID          int64         `json:"id"`
	EventID     int64         `json:"event_id"`
	Name        artifact.Kind `json:"name"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Ref converts the row into the reference handed to callers.
func (a *Artifact) Ref() artifact.Ref {
	return artifact.Ref{
		Kind:        a.Name,
		Path:        a.Path,
		Description: a.Description,
	}
}
