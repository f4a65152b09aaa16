// Package mcp provides an MCP (Model Context Protocol) server exposing the
// sales assistant as tools: ask, search_knowledge and add_note.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/utils"
	"github.com/papercomputeco/pitch/pkg/vector"
)

// Assistant is the orchestrator surface the tools call.
type Assistant interface {
	NewSession() string
	Ask(ctx context.Context, sessionID, query string) (*rag.Reply, error)
	UpdateKnowledge(ctx context.Context, text string) (vector.Record, error)
	Search(ctx context.Context, query string, topK int) ([]vector.QueryResult, error)
}

type Config struct {
	// Assistant answers questions and serves the knowledge base
	Assistant Assistant

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the assistant tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pitch",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// no tools and no handler: /mcp is not mounted
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        noteToolName,
		Description: noteDescription,
	}, s.handleNote)

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

// Handler returns the HTTP handler for the MCP server, or nil for a noop
// server.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}

// MCPServer exposes the underlying server for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
