// Package vector defines the vector index contract and its drivers.
package vector

import "context"

// MetadataText is the metadata key carrying a record's source text. Every
// record written by pitch sets it.
const MetadataText = "text"

// Record is a stored item with its embedding and metadata. Writing a record
// whose ID already exists replaces it completely.
type Record struct {
	// ID is the caller-chosen identifier (e.g. "chunk-750-67-8428").
	ID string

	// Embedding is the vector representation of the record's text.
	Embedding []float32

	// Metadata always includes MetadataText.
	Metadata map[string]string
}

// Text returns the record's source text.
func (r Record) Text() string {
	return r.Metadata[MetadataText]
}

// NewRecord builds a record carrying text as its metadata.
func NewRecord(id string, embedding []float32, text string) Record {
	return Record{
		ID:        id,
		Embedding: embedding,
		Metadata:  map[string]string{MetadataText: text},
	}
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Record

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings. Implementations
// are shared across sessions and must be safe for concurrent use.
type Driver interface {
	// Upsert writes records, replacing any existing record with the same ID.
	// It returns the number of records written; an empty batch is a no-op.
	Upsert(ctx context.Context, records []Record) (int, error)

	// Query returns at most topK records ordered by descending score.
	// topK must be >= 1. An empty index yields an empty result.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves records by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Record, error)

	// Delete removes records by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Dimensions reports the vector length the index accepts, or 0 when the
	// index adapts to whatever it is first given.
	Dimensions() int

	// Close releases any resources held by the driver.
	Close() error
}
