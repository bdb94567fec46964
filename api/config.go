// Package api serves pitwall over HTTP: the query endpoint, the cached
// event listings, chart media, Prometheus metrics and the MCP endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/metrics"
	"github.com/papercomputeco/pitwall/pkg/resolver"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

// Dispatcher answers free-text and structured queries.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Handle(ctx context.Context, q dispatch.Query) (*dispatch.Reply, error)
	Resolve(ctx context.Context, q dispatch.ArtifactQuery) (resolver.Result, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MediaDir is the directory rendered charts are served from.
	MediaDir string

	Dispatcher Dispatcher
	Store      storage.Driver

	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Manager

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}
