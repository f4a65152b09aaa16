package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/pitch/api/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query parameter is required")
	}

	topK := apisearch.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "top_k must be a positive integer")
		}
		topK = parsed
	}

	output, err := apisearch.Search(c.Context(), query, topK, s.config.Assistant, s.logger)
	if err != nil {
		return s.fail(c, "search", err)
	}

	return c.JSON(output)
}
