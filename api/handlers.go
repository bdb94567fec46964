package api

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
)

const mediaPrefix = "/v1/media/"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ArtifactResponse is one chart in a response.
type ArtifactResponse struct {
	Kind        artifact.Kind `json:"kind"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
}

// QueryResponse answers POST /v1/queries.
type QueryResponse struct {
	Summary   string             `json:"summary"`
	Artifacts []ArtifactResponse `json:"artifacts"`
}

// ResolveResponse answers POST /v1/artifacts/resolve.
type ResolveResponse struct {
	Kind        artifact.Kind `json:"kind"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
	State       string        `json:"state"`
	Created     bool          `json:"created"`
	URL         string        `json:"url"`
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind dispatch.Kind) int {
	switch kind {
	case dispatch.KindParse, dispatch.KindUnknownDriver:
		return fiber.StatusBadRequest
	case dispatch.KindThrottled:
		return fiber.StatusTooManyRequests
	case dispatch.KindGeneration:
		return fiber.StatusBadGateway
	case dispatch.KindStaleArtifact:
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the user-facing message for err.
func fail(c *fiber.Ctx, err error) error {
	kind := dispatch.Classify(err)

	var throttled *dispatch.ThrottledError
	if errors.As(err, &throttled) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(throttled.RetryAfter.Seconds()+0.5)))
	}

	return c.Status(statusFor(kind)).JSON(newErrorResponse(err))
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error: dispatch.Message(err),
		Kind:  string(dispatch.Classify(err)),
	}
}

func mediaURL(path string) string {
	return mediaPrefix + filepath.Base(path)
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleQuery answers a free-text question.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	q, err := decodeQuery(c)
	if err != nil {
		return rejectQuery(c, err)
	}

	reply, err := s.config.Dispatcher.Handle(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(newQueryResponse(reply))
}

var errInvalidBody = errors.New("invalid request body")

// decodeQuery parses a query body. The session defaults to the client address.
func decodeQuery(c *fiber.Ctx) (dispatch.Query, error) {
	var q dispatch.Query
	if err := c.BodyParser(&q); err != nil {
		return q, errInvalidBody
	}
	if strings.TrimSpace(q.Text) == "" {
		return q, dispatch.ErrParse
	}
	if q.SessionID == "" {
		q.SessionID = c.IP()
	}
	return q, nil
}

func rejectQuery(c *fiber.Ctx, err error) error {
	if errors.Is(err, errInvalidBody) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	return fail(c, err)
}

func newQueryResponse(reply *dispatch.Reply) QueryResponse {
	resp := QueryResponse{
		Summary:   reply.Summary,
		Artifacts: make([]ArtifactResponse, 0, len(reply.Artifacts)),
	}
	for _, a := range reply.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			Kind:        a.Kind,
			Description: a.Description,
			URL:         mediaURL(a.Path),
		})
	}
	return resp
}

// handleListEvents lists every cached event.
func (s *Server) handleListEvents(c *fiber.Ctx) error {
	events, err := s.config.Store.ListEvents(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list events"})
	}

	return c.JSON(map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// handleListArtifacts lists the charts cached for one event.
func (s *Server) handleListArtifacts(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id must be a positive integer"})
	}

	artifacts, err := s.config.Store.ListArtifacts(c.UserContext(), id)
	if err != nil {
		s.logger.Error("failed to list artifacts", "event_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list artifacts"})
	}

	return c.JSON(map[string]any{
		"event_id":  id,
		"count":     len(artifacts),
		"artifacts": artifacts,
	})
}

// handleResolve resolves one chart from a structured request.
func (s *Server) handleResolve(c *fiber.Ctx) error {
	var q dispatch.ArtifactQuery
	if err := c.BodyParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	res, err := s.config.Dispatcher.Resolve(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(ResolveResponse{
		Kind:        res.Kind,
		Path:        res.Path,
		Description: res.Description,
		State:       res.State.String(),
		Created:     res.Created,
		URL:         mediaURL(res.Path),
	})
}

// handleMedia streams a rendered chart. A chart whose file is gone is 410.
func (s *Server) handleMedia(c *fiber.Ctx) error {
	name := c.Params("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid file name"})
	}

	f, err := dispatch.Deliver(dispatch.Delivery{Path: filepath.Join(s.config.MediaDir, name)})
	if err != nil {
		if errors.Is(err, dispatch.ErrStaleArtifact) {
			return fail(c, err)
		}
		s.logger.Error("failed to open media", "file", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to open media"})
	}

	c.Type(strings.TrimPrefix(filepath.Ext(name), "."))
	return c.SendStream(f)
}
