package llm

import "strings"

// Prompt is an ordered list of messages sent to a completion provider.
type Prompt struct {
	Messages []Message `json:"messages"`
}

// SplitSystem separates system messages from the conversation, for
// providers that take system instructions out of band. System messages are
// joined with a blank line, in order.
func (p Prompt) SplitSystem() (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Options tune a completion call. Zero values leave provider defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
