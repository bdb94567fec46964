package api

import (
	"bufio"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/sse"
)

// Event types of the query stream.
const (
	EventStage = "stage"
	EventReply = "reply"
	EventError = "error"
)

// StageEvent is the data of a "stage" event.
type StageEvent struct {
	Stage dispatch.Stage `json:"stage"`
}

// handleQueryStream answers a free-text question as an event stream: one
// "stage" event per dispatcher stage, then a "reply" with the QueryResponse
// or an "error" with the ErrorResponse. Failures after the stream has
// started are only reported in the "error" event, the status stays 200.
func (s *Server) handleQueryStream(c *fiber.Ctx) error {
	q, err := decodeQuery(c)
	if err != nil {
		return rejectQuery(c, err)
	}

	// c is released once this handler returns, the writer below runs later.
	ctx := c.UserContext()
	d := s.config.Dispatcher
	log := s.logger

	c.Set(fiber.HeaderContentType, sse.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		send := func(typ string, v any) {
			data, err := json.Marshal(v)
			if err != nil {
				log.Error("failed to encode stream event", "type", typ, "error", err)
				return
			}
			if err := sse.Write(w, sse.Event{Type: typ, Data: string(data)}); err != nil {
				log.Debug("query stream closed", "error", err)
				return
			}
			_ = w.Flush()
		}

		ctx := dispatch.ContextWithProgress(ctx, func(st dispatch.Stage) {
			send(EventStage, StageEvent{Stage: st})
		})

		reply, err := d.Handle(ctx, q)
		if err != nil {
			send(EventError, newErrorResponse(err))
			return
		}
		send(EventReply, newQueryResponse(reply))
	})

	return nil
}
