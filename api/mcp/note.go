package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	noteToolName    = "add_note"
	noteDescription = "Add a free-text note (a sales strategy, market trend or customer fact) to the knowledge base so later answers can use it."
)

// NoteInput represents the input arguments for the add_note tool.
type NoteInput struct {
	Text string `json:"text" jsonschema:"the note to store"`
}

// NoteOutput identifies the stored note.
type NoteOutput struct {
	ID string `json:"id"`
}

func (s *Server) handleNote(ctx context.Context, _ *mcp.CallToolRequest, input NoteInput) (*mcp.CallToolResult, NoteOutput, error) {
	rec, err := s.config.Assistant.UpdateKnowledge(ctx, input.Text)
	if err != nil {
		s.config.Logger.Error("MCP add_note failed", "error", err)
		return toolError(fmt.Sprintf("Adding note failed: %v", err)), NoteOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "stored " + rec.ID}},
	}, NoteOutput{ID: rec.ID}, nil
}
