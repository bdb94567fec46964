package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeArtifactCreated is emitted after a newly rendered chart is cached.
	EventTypeArtifactCreated = "pitwall.artifact.created"
)

// ArtifactCreatedEvent is a transport-neutral payload for a cached chart.
type ArtifactCreatedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Subject       Subject         `json:"subject"`
	Artifact      ArtifactPayload `json:"artifact"`
	RenderMs      int64           `json:"render_ms"`
}

// Subject identifies the analysed (season, grand prix, driver) triple.
type Subject struct {
	StoreEventID int64  `json:"store_event_id"`
	Season       int    `json:"season"`
	GP           string `json:"gp"`
	Driver       string `json:"driver"`
}

// ArtifactPayload describes the cached chart.
type ArtifactPayload struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// NewArtifactCreatedEvent stamps a fresh event id and emission time.
func NewArtifactCreatedEvent(subject Subject, payload ArtifactPayload, render time.Duration) *ArtifactCreatedEvent {
	return &ArtifactCreatedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeArtifactCreated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Subject:       subject,
		Artifact:      payload,
		RenderMs:      render.Milliseconds(),
	}
}
