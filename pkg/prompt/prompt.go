// Package prompt assembles the message list sent for completion.
package prompt

import (
	"strings"

	"github.com/papercomputeco/pitch/pkg/llm"
	"github.com/papercomputeco/pitch/pkg/memory"
)

const (
	// ContextPrefix introduces the retrieved context block.
	ContextPrefix = "Use this context to inform your response: "

	// QueryPrefix introduces the user's query.
	QueryPrefix = "User query: "

	// ContextSeparator joins retrieved texts.
	ContextSeparator = "\n"
)

// Assembler builds prompts in a fixed order: system instructions, history,
// the retrieved context block, then the user query. The context block is
// present even when nothing was retrieved.
type Assembler struct {
	ContextPrefix string
	QueryPrefix   string
}

// NewAssembler returns an assembler with the default wording.
func NewAssembler() *Assembler {
	return &Assembler{
		ContextPrefix: ContextPrefix,
		QueryPrefix:   QueryPrefix,
	}
}

// Build assembles a prompt. An empty system string omits the leading system
// message.
func (a *Assembler) Build(system string, history []memory.Turn, retrieved []string, query string) llm.Prompt {
	msgs := make([]llm.Message, 0, len(history)+3)

	if system != "" {
		msgs = append(msgs, llm.NewTextMessage(llm.RoleSystem, system))
	}

	for _, t := range history {
		msgs = append(msgs, llm.NewTextMessage(llm.Role(t.Role), t.Text))
	}

	msgs = append(msgs,
		llm.NewTextMessage(llm.RoleSystem, a.ContextPrefix+strings.Join(retrieved, ContextSeparator)),
		llm.NewTextMessage(llm.RoleUser, a.QueryPrefix+query),
	)

	return llm.Prompt{Messages: msgs}
}
