// Package storage persists transcripts of completed exchanges and ingest
// runs. It is written asynchronously by the worker pool and never sits on
// the answer path.
package storage

import (
	"context"
	"time"
)

// Exchange is one completed question and answer.
type Exchange struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Answer    string `json:"answer"`

	// ContextIDs are the vector record IDs injected as context.
	ContextIDs []string `json:"context_ids,omitempty"`

	// Degraded is set when retrieval failed and the answer had no context.
	Degraded bool `json:"degraded,omitempty"`

	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// IngestRun summarises one ingest call.
type IngestRun struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Source          string    `json:"source,omitempty"`
	Rows            int       `json:"rows"`
	ChunksCreated   int       `json:"chunks_created"`
	RecordsUpserted int       `json:"records_upserted"`
	Failures        int       `json:"failures"`
	CompletedAt     time.Time `json:"completed_at"`
}

// ExchangeQuery filters ListExchanges. Zero values match everything; Limit
// 0 means no limit and Offset only applies with a Limit. Results are ordered
// oldest first.
type ExchangeQuery struct {
	SessionID string
	Limit     int
	Offset    int
}

// Driver defines the interface for persisting and retrieving transcripts.
type Driver interface {
	// PutExchange stores an exchange. Writing an existing ID replaces it.
	PutExchange(ctx context.Context, ex *Exchange) error

	// GetExchange retrieves an exchange by ID or returns NotFoundError.
	GetExchange(ctx context.Context, id string) (*Exchange, error)

	// ListExchanges returns exchanges matching q.
	ListExchanges(ctx context.Context, q ExchangeQuery) ([]*Exchange, error)

	// PutIngestRun stores an ingest summary.
	PutIngestRun(ctx context.Context, run *IngestRun) error

	// ListIngestRuns returns the most recent runs, newest first.
	ListIngestRuns(ctx context.Context, limit int) ([]*IngestRun, error)

	// Close closes the store and releases any resources.
	Close() error
}
