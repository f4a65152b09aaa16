// Package api provides the HTTP API server for the sales assistant: session
// chat, ingestion, knowledge notes, search, insights and transcripts.
package api

import (
	"context"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/memory"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/vector"
)

// Assistant is the orchestrator surface the API serves. *rag.Sessions
// implements it.
type Assistant interface {
	NewSession() string
	Greeting() string
	Ask(ctx context.Context, sessionID, query string) (*rag.Reply, error)
	History(sessionID string) []memory.Turn
	ResetSession(sessionID string)
	DropSession(sessionID string)
	IngestSource(ctx context.Context, sessionID, source string, rows []chunk.Row) (*rag.IngestOutcome, error)
	UpdateKnowledge(ctx context.Context, text string) (vector.Record, error)
	Search(ctx context.Context, query string, topK int) ([]vector.QueryResult, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Assistant answers, ingests and searches. Required.
	Assistant Assistant

	// Transcripts serves recorded exchanges and ingest runs. Optional; the
	// transcript endpoints return 503 without it.
	Transcripts storage.Driver

	// BodyLimit caps request bodies, uploads included. Defaults to 32 MiB.
	BodyLimit int

	// NoMCP disables the MCP tools mounted at /mcp.
	NoMCP bool
}

var _ Assistant = (*rag.Sessions)(nil)
