// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/pitch/pkg/embeddings"
	"github.com/papercomputeco/pitch/pkg/embeddings/ollama"
	"github.com/papercomputeco/pitch/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType  string
	TargetURL     string
	Model         string
	APIKey        string
	MaxInputChars int
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:       o.TargetURL,
			Model:         o.Model,
			MaxInputChars: o.MaxInputChars,
		})
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:       o.TargetURL,
			Model:         o.Model,
			APIKey:        o.APIKey,
			MaxInputChars: o.MaxInputChars,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
