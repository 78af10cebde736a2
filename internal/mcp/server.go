// Package mcp exposes document search and indexing status over the
// Model Context Protocol so AI agents can query the knowledge base.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hfarouk/docdex/internal/retriever"
	"github.com/hfarouk/docdex/internal/store"
	"github.com/hfarouk/docdex/internal/vectorindex"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes knowledge base tools.
type Server struct {
	retriever *retriever.Retriever
	store     *store.Store
	index     *vectorindex.Manager
	rrfK      int
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(rt *retriever.Retriever, st *store.Store, index *vectorindex.Manager, rrfK int) *Server {
	s := &Server{
		retriever: rt,
		store:     st,
		index:     index,
		rrfK:      rrfK,
	}

	s.mcp = server.NewMCPServer(
		"docdex",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(getDocumentStatusTool, s.handleGetDocumentStatus)
	s.mcp.AddTool(getIndexStatusTool, s.handleGetIndexStatus)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
