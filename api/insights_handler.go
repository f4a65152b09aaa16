package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitch/pkg/insights"
	"github.com/papercomputeco/pitch/pkg/rag"
)

// InsightResponse is an answered insight.
type InsightResponse struct {
	Kind      insights.Kind `json:"kind"`
	SessionID string        `json:"session_id"`
	Query     string        `json:"query"`
	*rag.Reply
}

// handleInsight handles GET /v1/insights/:kind. session_id runs the insight
// inside an existing conversation; without it a throwaway session is used
// and dropped once answered. customer is required for the recommendations
// insight.
func (s *Server) handleInsight(c *fiber.Ctx) error {
	kind, err := insights.ParseKind(c.Params("kind"))
	if err != nil {
		return s.fail(c, "insight", err)
	}

	query, err := insights.Query(kind, c.Query("customer"))
	if err != nil {
		return s.fail(c, "insight", err)
	}

	id := c.Query("session_id")
	if id == "" {
		id = s.config.Assistant.NewSession()
		defer s.config.Assistant.DropSession(id)
	}

	reply, err := s.config.Assistant.Ask(c.Context(), id, query)
	if err != nil {
		return s.fail(c, "insight", err)
	}

	return c.JSON(InsightResponse{Kind: kind, SessionID: id, Query: query, Reply: reply})
}
