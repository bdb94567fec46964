package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/logger"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func decodeLine(buf *bytes.Buffer) map[string]any {
	var rec map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec)).To(Succeed())
	return rec
}

var _ = Describe("New", func() {
	It("writes info text records by default", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Info("resolved artifact", "key", "2025/Imola/COL/qualy_results")
		l.Debug("hidden")

		Expect(buf.String()).To(ContainSubstring("resolved artifact"))
		Expect(buf.String()).To(ContainSubstring("2025/Imola/COL/qualy_results"))
		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
	})

	It("lets --debug through", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithDebug(true)).Debug("discarding extraction output")

		Expect(buf.String()).To(ContainSubstring("discarding extraction output"))
	})

	It("prefers JSON over pretty output", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true), logger.WithSource(true))
		l.Info("starting API server", "listen", ":8081")

		rec := decodeLine(&buf)
		Expect(rec["msg"]).To(Equal("starting API server"))
		Expect(rec["listen"]).To(Equal(":8081"))
		Expect(rec).To(HaveKey("source"))
	})

	It("renders pretty records for the terminal", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithPretty(true)).Warn("cached artifact file missing")

		Expect(buf.String()).To(ContainSubstring("cached artifact file missing"))
	})

	It("ignores a nil writer", func() {
		Expect(func() {
			logger.New(logger.WithWriter(nil), logger.WithDebug(false)).Debug("x")
		}).NotTo(Panic())
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level and stays so through With and WithGroup", func() {
		l := logger.Nop().With("key", "v").WithGroup("resolver")
		ctx := context.Background()

		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			Expect(l.Handler().Enabled(ctx, level)).To(BeFalse())
		}
		Expect(l.Handler().Handle(ctx, slog.Record{})).To(Succeed())
	})
})

var _ = Describe("Multi", func() {
	It("writes the terminal and the log file", func() {
		var term, file bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&term), logger.WithPretty(true)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true)),
		)

		l.With("component", "resolver").WithGroup("req").Info("resolved artifact", "state", "hit")

		Expect(term.String()).To(ContainSubstring("resolved artifact"))
		rec := decodeLine(&file)
		Expect(rec["component"]).To(Equal("resolver"))
		Expect(rec["req"]).To(HaveKeyWithValue("state", "hit"))
	})

	It("honours each logger's own level", func() {
		var quiet, verbose bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&quiet)),
			logger.New(logger.WithWriter(&verbose), logger.WithDebug(true)),
		)
		l.Debug("render took", "ms", 12)

		Expect(quiet.String()).To(BeEmpty())
		Expect(verbose.String()).To(ContainSubstring("render took"))
	})

	It("keeps writing to the other loggers when one fails", func() {
		var term bytes.Buffer
		broken := logger.New(logger.WithWriter(brokenWriter{}), logger.WithJSON(true))
		h := logger.Multi(broken, logger.New(logger.WithWriter(&term))).Handler()

		r := slog.NewRecord(time.Now(), slog.LevelInfo, "query handled", 0)
		Expect(h.Handle(context.Background(), r)).To(MatchError(ContainSubstring("disk full")))
		Expect(term.String()).To(ContainSubstring("query handled"))
	})

	It("skips nil loggers", func() {
		var buf bytes.Buffer
		logger.Multi(nil, logger.New(logger.WithWriter(&buf)), nil).Info("ok")

		Expect(buf.String()).To(ContainSubstring("ok"))
	})

	It("is disabled when built from nothing", func() {
		Expect(logger.Multi().Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
