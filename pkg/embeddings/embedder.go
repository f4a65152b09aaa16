// Package embeddings defines the text embedding contract shared by every
// session. One Embedder is built per process; implementations must be safe
// for concurrent use.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. The same text and model
	// configuration always yields the same vector length.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
