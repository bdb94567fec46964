// Package logger provides opinionated logging capabilities for the pitwall system
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New builds a *slog.Logger from the given options. With no options it writes
// info level text records to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &settings{level: slog.LevelInfo, out: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	w := c.out

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))

	case c.pretty:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
			TimeFormat:      time.Kitchen,
		})
		return slog.New(h)

	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
