package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	askToolName    = "ask"
	askDescription = "Ask the sales assistant a question. The answer draws on the sales knowledge base and on earlier turns of the same session. Pass the returned session_id back to continue a conversation."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Query     string `json:"query" jsonschema:"the question for the sales assistant"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue; omit to start a new one"`
}

// AskOutput is the assistant's answer.
type AskOutput struct {
	SessionID  string   `json:"session_id"`
	Answer     string   `json:"answer"`
	ContextIDs []string `json:"context_ids"`
	Degraded   bool     `json:"degraded,omitempty"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	id := input.SessionID
	if id == "" {
		id = s.config.Assistant.NewSession()
	}

	reply, err := s.config.Assistant.Ask(ctx, id, input.Query)
	if err != nil {
		s.config.Logger.Error("MCP ask failed", "session_id", id, "error", err)
		return toolError(fmt.Sprintf("Ask failed: %v", err)), AskOutput{}, nil
	}

	ids := make([]string, 0, len(reply.Context))
	for _, r := range reply.Context {
		ids = append(ids, r.ID)
	}

	return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: reply.Text}},
		}, AskOutput{
			SessionID:  id,
			Answer:     reply.Text,
			ContextIDs: ids,
			Degraded:   reply.Degraded,
		}, nil
}
