package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// SDKServer returns the underlying SDK server for in-memory sessions.
func (s *Server) SDKServer() *mcp.Server {
	return s.mcpServer
}
