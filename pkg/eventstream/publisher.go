// Package eventstream publishes pitwall domain events to an external stream.
package eventstream

import "context"

// Publisher publishes artifact events to an event stream backend.
type Publisher interface {
	PublishArtifact(ctx context.Context, event *ArtifactCreatedEvent) error
	Close() error
}
