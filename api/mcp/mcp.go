// Package mcp exposes pitwall's driver analysis as MCP (Model Context
// Protocol) tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/resolver"
	"github.com/papercomputeco/pitwall/pkg/utils"
)

// Dispatcher answers free-text and structured queries.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Handle(ctx context.Context, q dispatch.Query) (*dispatch.Reply, error)
	Resolve(ctx context.Context, q dispatch.ArtifactQuery) (resolver.Result, error)
}

type Config struct {
	// Dispatcher answers the tool calls.
	Dispatcher Dispatcher

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the analysis tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pitwall",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Dispatcher == nil {
			return nil, errors.New("dispatcher is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        analyzeToolName,
			Description: analyzeDescription,
		}, s.handleAnalyze)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        resolveToolName,
			Description: resolveDescription,
		}, s.handleResolve)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
