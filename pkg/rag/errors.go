package rag

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/vector"
)

var (
	// ErrEmptyQuery is returned for a blank query before any remote call.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyNote is returned by UpdateKnowledge for blank text.
	ErrEmptyNote = errors.New("note is empty")

	// ErrEmptySessionID is returned when a call names no session.
	ErrEmptySessionID = errors.New("session id is empty")

	// ErrDimensionMismatch is returned by New when the embedder and the
	// vector index disagree on vector length.
	ErrDimensionMismatch = vector.ErrDimensionMismatch
)

// SchemaError is the rejection reported for a row that does not fit the
// ingestion schema.
type SchemaError = chunk.SchemaError

// EmbeddingError reports that text could not be converted to a vector.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s: embedding: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports that the vector index could not be queried or
// written.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: vector index: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// CompletionError reports a failed, timed out or malformed completion.
type CompletionError struct {
	Op  string
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: completion: %v", e.Op, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
