package llm

import "context"

// Completer produces a completion for a prompt. Implementations are shared
// across sessions and must be safe for concurrent use.
type Completer interface {
	// Complete returns the generated text. Failures wrap ErrCompletion.
	Complete(ctx context.Context, prompt Prompt) (string, error)

	// Name is the provider name, e.g. "ollama".
	Name() string
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

func (f CompleterFunc) Name() string { return "func" }
