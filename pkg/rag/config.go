package rag

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/embeddings"
	"github.com/papercomputeco/pitch/pkg/llm"
	"github.com/papercomputeco/pitch/pkg/memory"
	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/worker"
)

const (
	DefaultTopK              = 5
	DefaultRetrievalTimeout  = 10 * time.Second
	DefaultCompletionTimeout = 60 * time.Second

	// DefaultGreeting is the first assistant line of a new session.
	DefaultGreeting = "Hello, I'm your AI Sales Assistant. How can I help you boost your sales performance today?"

	// dimensionProbe is embedded once at startup to learn the vector length.
	dimensionProbe = "dimension probe"
)

// Config wires the orchestrator to its collaborators. Embedder, Index and
// Completer are required and shared by every session.
type Config struct {
	Embedder  embeddings.Embedder
	Index     vector.Driver
	Completer llm.Completer

	// Schema shapes ingested rows. Defaults to chunk.SalesSchema.
	Schema *chunk.Schema

	// SystemPrompt leads every prompt. Empty omits the system message.
	SystemPrompt string

	// Greeting is returned for a new or reset session.
	Greeting string

	// TopK is the number of records retrieved per query.
	TopK int

	// MemoryWindow is the number of turns kept per session.
	MemoryWindow int

	RetrievalTimeout  time.Duration
	CompletionTimeout time.Duration

	// Model labels recorded exchanges.
	Model string

	// Worker receives exchanges and ingest runs for persistence. Optional.
	Worker *worker.Pool

	Logger *slog.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Schema == nil {
		s := chunk.SalesSchema
		out.Schema = &s
	}
	if out.Greeting == "" {
		out.Greeting = DefaultGreeting
	}
	if out.TopK <= 0 {
		out.TopK = DefaultTopK
	}
	if out.MemoryWindow <= 0 {
		out.MemoryWindow = memory.DefaultCapacity
	}
	if out.RetrievalTimeout <= 0 {
		out.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if out.CompletionTimeout <= 0 {
		out.CompletionTimeout = DefaultCompletionTimeout
	}
	return out
}
