// Package rag is the retrieval-augmented answer loop. Sessions embeds a
// query, retrieves similar records from the vector index, assembles a prompt
// from the session's conversation window and the retrieved context, and asks
// the completion provider for the answer. It also ingests tabular rows into
// the index.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/memory"
	"github.com/papercomputeco/pitch/pkg/memory/local"
	"github.com/papercomputeco/pitch/pkg/prompt"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/worker"
)

// Reply is an answer with the context that produced it.
type Reply struct {
	Text string `json:"text"`

	// Context holds the retrieved records, best first.
	Context []vector.QueryResult `json:"context"`

	// Degraded is set when retrieval failed and the answer was generated
	// without context.
	Degraded bool `json:"degraded,omitempty"`
}

// Sessions is the session registry and the orchestrator behind it. Calls on
// one session run one at a time; different sessions run concurrently.
type Sessions struct {
	config    Config
	builder   *chunk.Builder
	assembler *prompt.Assembler
	windows   *local.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	logger *slog.Logger
}

// New validates the configuration and probes the embedder so that a
// disagreement with the index dimensionality fails at startup.
func New(ctx context.Context, c *Config) (*Sessions, error) {
	if c == nil {
		return nil, errors.New("rag config is required")
	}
	if c.Embedder == nil || c.Index == nil || c.Completer == nil {
		return nil, errors.New("embedder, vector index and completer are required")
	}

	cfg := c.withDefaults()
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	builder, err := chunk.NewBuilder(*cfg.Schema)
	if err != nil {
		return nil, err
	}

	s := &Sessions{
		config:    cfg,
		builder:   builder,
		assembler: prompt.NewAssembler(),
		windows:   local.NewStore(local.Config{Capacity: cfg.MemoryWindow}),
		locks:     make(map[string]*sync.Mutex),
		logger:    cfg.Logger.With("component", "rag"),
	}

	if err := s.probeDimensions(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sessions) probeDimensions(ctx context.Context) error {
	want := s.config.Index.Dimensions()
	if want == 0 {
		return nil
	}

	vec, err := s.embed(ctx, "startup", dimensionProbe)
	if err != nil {
		return err
	}
	if len(vec) != want {
		return fmt.Errorf("%w: embedder produces %d dimensions, index expects %d",
			ErrDimensionMismatch, len(vec), want)
	}
	s.logger.Debug("embedding dimensions verified", "dimensions", want)
	return nil
}

// Greeting is the assistant's opening line for a session.
func (s *Sessions) Greeting() string {
	return s.config.Greeting
}

// NewSession registers a fresh session and returns its ID.
func (s *Sessions) NewSession() string {
	id := uuid.NewString()
	s.windows.Window(id)
	s.logger.Debug("session created", "session_id", id)
	return id
}

// ResetSession discards the session's conversation window. An answer still
// in flight on the old window is not carried over.
func (s *Sessions) ResetSession(sessionID string) {
	s.windows.Reset(sessionID)
	s.logger.Info("session reset", "session_id", sessionID)
}

// DropSession forgets the session: its window and its lock. Callers must not
// use sessionID concurrently with the drop.
func (s *Sessions) DropSession(sessionID string) {
	unlock := s.lock(sessionID)
	s.windows.Drop(sessionID)
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()
	unlock()
	s.logger.Debug("session dropped", "session_id", sessionID)
}

// History returns the session's turns, oldest first.
func (s *Sessions) History(sessionID string) []memory.Turn {
	if !s.windows.Has(sessionID) {
		return []memory.Turn{}
	}
	return s.windows.Window(sessionID).Turns()
}

// SessionIDs lists every known session.
func (s *Sessions) SessionIDs() []string {
	return s.windows.IDs()
}

// Answer returns the assistant's reply to query within sessionID.
func (s *Sessions) Answer(ctx context.Context, sessionID, query string) (string, error) {
	reply, err := s.Ask(ctx, sessionID, query)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Ask is Answer with the retrieved context attached.
//
// A failing vector index degrades to an empty context block. Embedding and
// completion failures are returned. The user and assistant turns are
// appended together, and only when the completion succeeded while ctx was
// still live.
func (s *Sessions) Ask(ctx context.Context, sessionID, query string) (*Reply, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := s.lock(sessionID)
	defer unlock()

	started := time.Now()
	window := s.windows.Window(sessionID)
	history := window.Turns()

	vec, err := s.embed(ctx, "answer", query)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Context: []vector.QueryResult{}}
	results, err := s.retrieve(ctx, vec, s.config.TopK)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without context",
			"session_id", sessionID,
			"error", err,
		)
		reply.Degraded = true
	} else {
		reply.Context = results
	}

	texts := make([]string, 0, len(reply.Context))
	for _, r := range reply.Context {
		texts = append(texts, r.Text())
	}

	p := s.assembler.Build(s.config.SystemPrompt, history, texts, query)

	cctx, cancel := context.WithTimeout(ctx, s.config.CompletionTimeout)
	text, err := s.config.Completer.Complete(cctx, p)
	cancel()
	if err != nil {
		s.logger.Error("completion failed",
			"session_id", sessionID,
			"provider", s.config.Completer.Name(),
			"error", err,
		)
		return nil, &CompletionError{Op: "answer", Err: err}
	}

	// the caller gave up while the completion was running
	if err := ctx.Err(); err != nil {
		return nil, &CompletionError{Op: "answer", Err: err}
	}

	if err := window.Append(
		memory.Turn{Role: memory.RoleUser, Text: query},
		memory.Turn{Role: memory.RoleAssistant, Text: text},
	); err != nil {
		return nil, fmt.Errorf("recording turns: %w", err)
	}
	reply.Text = text

	s.enqueue(worker.Job{Exchange: &storage.Exchange{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Query:       query,
		Answer:      text,
		ContextIDs:  contextIDs(reply.Context),
		Degraded:    reply.Degraded,
		Provider:    s.config.Completer.Name(),
		Model:       s.config.Model,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}})

	s.logger.Debug("answered",
		"session_id", sessionID,
		"context", len(reply.Context),
		"degraded", reply.Degraded,
		"duration", time.Since(started),
	)
	return reply, nil
}

// Search embeds query and returns the topK closest records. Unlike Ask, a
// failing index is an error here.
func (s *Sessions) Search(ctx context.Context, query string, topK int) ([]vector.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	vec, err := s.embed(ctx, "search", query)
	if err != nil {
		return nil, err
	}

	results, err := s.retrieve(ctx, vec, topK)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		return nil, &RetrievalError{Op: "search", Err: err}
	}
	return results, nil
}

func (s *Sessions) embed(ctx context.Context, op, text string) ([]float32, error) {
	ectx, cancel := context.WithTimeout(ctx, s.config.RetrievalTimeout)
	defer cancel()

	vec, err := s.config.Embedder.Embed(ectx, text)
	if err != nil {
		s.logger.Error("embedding failed", "op", op, "error", err)
		return nil, &EmbeddingError{Op: op, Err: err}
	}
	return vec, nil
}

func (s *Sessions) retrieve(ctx context.Context, vec []float32, topK int) ([]vector.QueryResult, error) {
	qctx, cancel := context.WithTimeout(ctx, s.config.RetrievalTimeout)
	defer cancel()
	return s.config.Index.Query(qctx, vec, topK)
}

func (s *Sessions) enqueue(job worker.Job) {
	if s.config.Worker == nil {
		return
	}
	s.config.Worker.Enqueue(job)
}

// lock acquires the per-session mutex and returns its release.
func (s *Sessions) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func contextIDs(results []vector.QueryResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}
