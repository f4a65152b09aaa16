// Package provider builds llm.Completer implementations by name.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/pitch/pkg/llm"
	"github.com/papercomputeco/pitch/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/pitch/pkg/llm/provider/ollama"
	"github.com/papercomputeco/pitch/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Groq      = "groq"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Groq, Ollama}
}

// Config selects and configures a completion provider.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	llm.Options
	Logger *slog.Logger
}

// New creates a Completer for the configured provider.
// Returns an error if the provider type is not recognized.
func New(c Config) (llm.Completer, error) {
	switch c.Provider {
	case Anthropic:
		return anthropic.New(anthropic.Config{
			BaseURL: c.BaseURL,
			APIKey:  c.APIKey,
			Options: c.Options,
			Logger:  c.Logger,
		})
	case OpenAI, Groq:
		baseURL := c.BaseURL
		if baseURL == "" && c.Provider == Groq {
			baseURL = openai.GroqBaseURL
		}
		return openai.New(openai.Config{
			Name:    c.Provider,
			BaseURL: baseURL,
			APIKey:  c.APIKey,
			Options: c.Options,
		})
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL: c.BaseURL,
			Options: c.Options,
			Logger:  c.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", c.Provider, SupportedProviders())
	}
}
