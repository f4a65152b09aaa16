// Package ollama implements llm.Completer against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/pitch/pkg/llm"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1"
)

// Config holds configuration for the completer.
type Config struct {
	BaseURL string
	llm.Options

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Completer calls POST /api/chat with streaming disabled.
type Completer struct {
	baseURL    string
	options    llm.Options
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config) *Completer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Completer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		options:    cfg.Options,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

func (c *Completer) Name() string { return "ollama" }

func (c *Completer) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	stream := false
	req := ollamaRequest{
		Model:    c.options.Model,
		Stream:   &stream,
		Messages: make([]ollamaMessage, 0, len(prompt.Messages)),
	}
	for _, m := range prompt.Messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	opts := &ollamaOptions{}
	if c.options.Temperature > 0 {
		t := c.options.Temperature
		opts.Temperature = &t
	}
	if c.options.MaxTokens > 0 {
		n := c.options.MaxTokens
		opts.NumPredict = &n
	}
	if opts.Temperature != nil || opts.NumPredict != nil {
		req.Options = opts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %w", llm.ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", llm.ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %w", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", llm.StatusError("ollama", resp.StatusCode, b)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %w: %w", llm.ErrCompletion, llm.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return "", fmt.Errorf("%w: %w: empty message", llm.ErrCompletion, llm.ErrMalformedResponse)
	}

	c.logger.Debug("ollama completion",
		"model", parsed.Model,
		"done_reason", parsed.DoneReason,
		"prompt_tokens", parsed.PromptEvalCount,
		"completion_tokens", parsed.EvalCount,
		"duration", time.Duration(parsed.TotalDuration),
	)

	return parsed.Message.Content, nil
}

var _ llm.Completer = (*Completer)(nil)
