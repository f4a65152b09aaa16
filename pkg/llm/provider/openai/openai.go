// Package openai implements llm.Completer for OpenAI-compatible chat APIs
// (OpenAI, Groq and other hosts of the /chat/completions contract) through
// langchaingo.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/papercomputeco/pitch/pkg/llm"
)

const (
	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"

	DefaultModel = "gpt-4o-mini"
)

// Config holds configuration for the completer.
type Config struct {
	// Name is reported by Completer.Name, e.g. "openai" or "groq".
	Name    string
	BaseURL string
	APIKey  string
	llm.Options
}

// Completer wraps a langchaingo OpenAI client.
type Completer struct {
	name    string
	client  *lcopenai.LLM
	options llm.Options
}

// New builds a completer. An API key is required.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai-compatible completion requires an API key")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithHTTPClient(statusRecorder{next: &http.Client{}}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Name, err)
	}

	return &Completer{name: cfg.Name, client: client, options: cfg.Options}, nil
}

func (c *Completer) Name() string { return c.name }

// Complete sends the prompt as chat messages and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	messages := make([]llms.MessageContent, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		messages = append(messages, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithModel(c.options.Model)}
	if c.options.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.options.Temperature))
	}
	if c.options.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.options.MaxTokens))
	}

	status := new(int)
	resp, err := c.client.GenerateContent(context.WithValue(ctx, statusKey{}, status), messages, opts...)
	if err != nil {
		if *status == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w: %s: %w", llm.ErrCompletion, llm.ErrRateLimited, c.name, err)
		}
		return "", fmt.Errorf("%w: %s: %w", llm.ErrCompletion, c.name, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: %w: %s returned no content", llm.ErrCompletion, llm.ErrMalformedResponse, c.name)
	}

	return resp.Choices[0].Content, nil
}

type statusKey struct{}

// statusRecorder stores the response status in the *int a Complete call
// put in the request context. langchaingo only reports HTTP failures as
// formatted text.
type statusRecorder struct {
	next *http.Client
}

func (r statusRecorder) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.next.Do(req)
	if resp != nil {
		if status, ok := req.Context().Value(statusKey{}).(*int); ok {
			*status = resp.StatusCode
		}
	}
	return resp, err
}

func messageType(r llm.Role) llms.ChatMessageType {
	switch r {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

var _ llm.Completer = (*Completer)(nil)
