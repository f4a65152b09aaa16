// Package search provides shared search types and logic for semantic search
// over the knowledge base. It is used by both the REST API endpoint and the
// MCP server tool.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/vector"
)

// DefaultTopK is used when a request names no top_k.
const DefaultTopK = 5

// Searcher embeds a query and returns the closest records.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]vector.QueryResult, error)
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`

	// Kind is "chunk" for ingested rows and "note" for knowledge updates.
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search runs query against the knowledge base.
func Search(
	ctx context.Context,
	query string,
	topK int,
	searcher Searcher,
	logger *slog.Logger,
) (*SearchOutput, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Debug("search request",
		"query", query,
		"top_k", topK,
	)

	results, err := searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, BuildSearchResult(r))
	}

	return &SearchOutput{
		Query:   query,
		Results: out,
		Count:   len(out),
	}, nil
}

// BuildSearchResult converts a vector query result into a SearchResult.
func BuildSearchResult(r vector.QueryResult) SearchResult {
	return SearchResult{
		ID:    r.ID,
		Score: r.Score,
		Kind:  Kind(r.ID),
		Text:  r.Text(),
	}
}

// Kind classifies a record ID by its namespace.
func Kind(id string) string {
	switch {
	case strings.HasPrefix(id, rag.NoteIDPrefix):
		return "note"
	case strings.HasPrefix(id, chunk.IDPrefix):
		return "chunk"
	default:
		return "other"
	}
}
