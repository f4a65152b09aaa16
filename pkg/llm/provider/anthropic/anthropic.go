// Package anthropic implements llm.Completer against Anthropic's Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/pitch/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"

	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// Config holds configuration for the completer.
type Config struct {
	BaseURL string
	APIKey  string
	llm.Options

	// HTTPClient defaults to a client without a timeout; callers bound calls
	// through the context.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Completer calls POST /v1/messages.
type Completer struct {
	baseURL    string
	apiKey     string
	options    llm.Options
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a completer. An API key is required.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic completion requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Completer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		options:    cfg.Options,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

func (c *Completer) Name() string { return "anthropic" }

func (c *Completer) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	system, rest := prompt.SplitSystem()

	req := anthropicRequest{
		Model:     c.options.Model,
		System:    system,
		MaxTokens: c.options.MaxTokens,
		Messages:  make([]anthropicMessage, 0, len(rest)),
	}
	if c.options.Temperature > 0 {
		t := c.options.Temperature
		req.Temperature = &t
	}
	for _, m := range rest {
		req.Messages = append(req.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %w", llm.ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", llm.ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %w", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", llm.StatusError("anthropic", resp.StatusCode, b)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %w: %w", llm.ErrCompletion, llm.ErrMalformedResponse, err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: %w: no text content", llm.ErrCompletion, llm.ErrMalformedResponse)
	}

	if parsed.Usage != nil {
		c.logger.Debug("anthropic completion",
			"model", parsed.Model,
			"stop_reason", parsed.StopReason,
			"input_tokens", parsed.Usage.InputTokens,
			"output_tokens", parsed.Usage.OutputTokens,
		)
	}

	return text.String(), nil
}

var _ llm.Completer = (*Completer)(nil)
