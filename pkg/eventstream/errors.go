package eventstream

import "errors"

// ErrNilArtifactEvent indicates a nil artifact event payload was provided to a publisher.
var ErrNilArtifactEvent = errors.New("nil artifact event")
