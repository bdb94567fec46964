package logger

import (
	"io"
	"log/slog"
)

// settings collects what New needs to pick and build a handler.
type settings struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	out    io.Writer
}

// Option configures New.
type Option func(*settings)

// WithDebug lowers the level to Debug. The default is Info.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the charmbracelet/log handler used by the terminal
// commands. WithJSON takes precedence over it.
func WithPretty(pretty bool) Option {
	return func(s *settings) { s.pretty = pretty }
}

// WithJSON selects slog's JSON handler, as used for serve's log file.
func WithJSON(json bool) Option {
	return func(s *settings) { s.json = json }
}

// WithWriter sends records to w instead of os.Stdout. A nil w is ignored.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// WithSource adds the calling file and line to every record.
func WithSource(source bool) Option {
	return func(s *settings) { s.source = source }
}
