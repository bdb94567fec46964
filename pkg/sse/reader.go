package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses events from a stream. When a destination is given every
// raw line is copied to it as read, so a caller can inspect events while
// forwarding the stream verbatim.
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	// current accumulates fields for the event being built.
	current Event
	hasData bool
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, io.Discard)
}

// NewTeeReader returns a Reader over src that copies every raw line to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{scanner: scanner, dest: dest}
}

// Next blocks until a complete event is available and returns it.
// It returns nil, nil once the source is exhausted. An event left open by a
// stream that ends without a trailing blank line is still returned.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		// bufio.Scanner strips the newline, reinsert it for the copy.
		if _, err := io.WriteString(r.dest, raw+"\n"); err != nil {
			return nil, err
		}

		switch {
		case raw == "":
			if r.hasData {
				return r.flush(), nil
			}
			// Keep-alive or leading blank line.
		case strings.HasPrefix(raw, ":"):
			// Comment.
		default:
			r.parseLine(raw)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasData {
		return r.flush(), nil
	}
	return nil, nil
}

// parseLine accumulates one "field:value" line. A single space after the
// colon is dropped and a line without a colon is a field with no value.
func (r *Reader) parseLine(line string) {
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
	case "event":
		r.current.Type = value
	case "id":
		r.current.ID = value
	default:
		// retry and unknown fields are ignored.
		return
	}
	r.hasData = true
}

func (r *Reader) flush() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
