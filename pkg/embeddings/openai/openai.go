// Package openai implements pkg/embeddings' Embedder for OpenAI-compatible
// embedding endpoints through langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/papercomputeco/pitch/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default OpenAI embedding model.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	BaseURL       string
	Model         string
	APIKey        string
	MaxInputChars int
}

// Embedder wraps a langchaingo embedder backed by the OpenAI client.
type Embedder struct {
	embedder      *lcembeddings.EmbedderImpl
	maxInputChars int
}

// NewEmbedder builds an embedder. An API key is required.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embeddings require an API key")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(baseURL),
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	impl, err := lcembeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating openai embedder: %w", err)
	}

	return &Embedder{
		embedder:      impl,
		maxInputChars: cfg.MaxInputChars,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := embeddings.ValidateInput(text, e.maxInputChars); err != nil {
		return nil, err
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return vec, nil
}

// Close is a no-op; the underlying client holds no resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
