package testutils

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/papercomputeco/pitch/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// Dims is the length of generated embeddings (defaults to 3).
	Dims int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Err, when set, is returned for every call.
	Err error

	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dims:       3,
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// derive a stable vector from the text
	sum := sha256.Sum256([]byte(text))
	emb := make([]float32, m.Dims)
	for i := range emb {
		emb[i] = float32(sum[i%len(sum)])/255 + 0.01
	}
	return emb, nil
}

// CallCount reports how many times Embed ran.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
