package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Server is the pitwall HTTP API.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The store and dispatcher are injected
// so they can be shared with the MCP server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if config.Store == nil {
		return nil, errors.New("storage driver is required")
	}
	if config.MediaDir == "" {
		return nil, errors.New("media directory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	if config.Metrics != nil {
		app.Use(s.instrument)
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/queries", s.handleQuery)
	app.Post("/v1/queries/stream", s.handleQueryStream)
	app.Get("/v1/events", s.handleListEvents)
	app.Get("/v1/events/:id/artifacts", s.handleListArtifacts)
	app.Post("/v1/artifacts/resolve", s.handleResolve)
	app.Get("/v1/media/:file", s.handleMedia)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// instrument records every request on the metrics manager, labeled by
// route pattern rather than raw path.
func (s *Server) instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.config.Metrics.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
