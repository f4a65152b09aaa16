package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/papercomputeco/pitch/pkg/llm"
)

// MockCompleter records prompts and answers with a canned or echoed reply.
type MockCompleter struct {
	mu sync.Mutex

	// Reply is returned when set; otherwise the last message is echoed.
	Reply string

	// Err, when set, is returned for every call.
	Err error

	// Block, when set, makes Complete wait for it or for ctx to end.
	Block chan struct{}

	Prompts []llm.Prompt
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

func (m *MockCompleter) Name() string { return "mock" }

func (m *MockCompleter) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	block, reply, err := m.Block, m.Reply, m.Err
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", llm.ErrCompletion, ctx.Err())
		}
	}

	if err != nil {
		return "", err
	}
	if reply != "" {
		return reply, nil
	}

	last := prompt.Messages[len(prompt.Messages)-1].Content
	return "echo: " + strings.TrimSpace(last), nil
}

// LastPrompt returns the most recent prompt.
func (m *MockCompleter) LastPrompt() llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return llm.Prompt{}
	}
	return m.Prompts[len(m.Prompts)-1]
}

func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

var _ llm.Completer = (*MockCompleter)(nil)
