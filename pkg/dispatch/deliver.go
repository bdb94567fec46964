package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Deliver opens the chart file behind d for the front end to send. A file
// that no longer exists is ErrStaleArtifact.
func Deliver(d Delivery) (*os.File, error) {
	f, err := os.Open(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStaleArtifact, d.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.Path, err)
	}
	return f, nil
}
