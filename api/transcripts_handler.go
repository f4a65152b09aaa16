package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitch/pkg/storage"
)

// ExchangesResponse lists recorded exchanges, oldest first.
type ExchangesResponse struct {
	Exchanges []*storage.Exchange `json:"exchanges"`
	Count     int                 `json:"count"`
}

// IngestsResponse lists recorded ingest runs, newest first.
type IngestsResponse struct {
	Runs  []*storage.IngestRun `json:"runs"`
	Count int                  `json:"count"`
}

func (s *Server) transcriptsConfigured(c *fiber.Ctx) bool {
	if s.config.Transcripts != nil {
		return true
	}
	_ = c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error: "transcripts are not configured",
	})
	return false
}

// handleListExchanges handles GET /v1/exchanges.
// Query parameters: session_id, limit and offset (all optional).
func (s *Server) handleListExchanges(c *fiber.Ctx) error {
	if !s.transcriptsConfigured(c) {
		return nil
	}

	limit, ok := nonNegative(c, "limit")
	if !ok {
		return badRequest(c, "limit must be a non-negative integer")
	}
	offset, ok := nonNegative(c, "offset")
	if !ok {
		return badRequest(c, "offset must be a non-negative integer")
	}

	exs, err := s.config.Transcripts.ListExchanges(c.Context(), storage.ExchangeQuery{
		SessionID: c.Query("session_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return s.fail(c, "list_exchanges", err)
	}

	return c.JSON(ExchangesResponse{Exchanges: exs, Count: len(exs)})
}

func (s *Server) handleGetExchange(c *fiber.Ctx) error {
	if !s.transcriptsConfigured(c) {
		return nil
	}

	ex, err := s.config.Transcripts.GetExchange(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, "get_exchange", err)
	}
	return c.JSON(ex)
}

func (s *Server) handleListIngests(c *fiber.Ctx) error {
	if !s.transcriptsConfigured(c) {
		return nil
	}

	limit, ok := nonNegative(c, "limit")
	if !ok {
		return badRequest(c, "limit must be a non-negative integer")
	}

	runs, err := s.config.Transcripts.ListIngestRuns(c.Context(), limit)
	if err != nil {
		return s.fail(c, "list_ingests", err)
	}
	return c.JSON(IngestsResponse{Runs: runs, Count: len(runs)})
}

func nonNegative(c *fiber.Ctx, key string) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
