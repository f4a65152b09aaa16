package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found in the vector store.
	ErrNotFound = errors.New("record not found")

	// ErrConnection is returned when the vector store cannot be reached or
	// rejects a request.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTopK is returned for a query with topK < 1.
	ErrInvalidTopK = errors.New("topK must be at least 1")

	// ErrInvalidRecord is returned for a record without an ID or embedding.
	ErrInvalidRecord = errors.New("invalid record")
)

// CheckQuery validates query arguments against an index of dims dimensions
// (0 disables the length check).
func CheckQuery(embedding []float32, topK, dims int) error {
	if topK < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	return CheckDimensions(embedding, dims)
}

// CheckDimensions reports ErrDimensionMismatch when dims > 0 and the vector
// length differs.
func CheckDimensions(embedding []float32, dims int) error {
	if dims > 0 && len(embedding) != dims {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(embedding), dims)
	}
	return nil
}

// CheckRecords validates a batch before it is written.
func CheckRecords(records []Record, dims int) error {
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %d has no ID", ErrInvalidRecord, i)
		}
		if len(r.Embedding) == 0 {
			return fmt.Errorf("%w: record %q has no embedding", ErrInvalidRecord, r.ID)
		}
		if err := CheckDimensions(r.Embedding, dims); err != nil {
			return fmt.Errorf("record %q: %w", r.ID, err)
		}
	}
	return nil
}

// Dedupe keeps the last record for every ID, preserving first-seen order.
// Backends that reject duplicate IDs within one write call use it.
func Dedupe(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
