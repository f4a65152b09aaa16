package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitch/pkg/memory"
	"github.com/papercomputeco/pitch/pkg/rag"
)

// SessionResponse is returned when a session is created or reset.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

// AnswerRequest is the body of POST /v1/sessions/:id/answer.
type AnswerRequest struct {
	Query string `json:"query"`
}

// AnswerResponse carries the reply and the records it was built from.
type AnswerResponse struct {
	SessionID string `json:"session_id"`
	*rag.Reply
}

// HistoryResponse contains a session's conversation window, oldest first.
type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []memory.Turn `json:"turns"`
	Count     int           `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	id := s.config.Assistant.NewSession()
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{
		SessionID: id,
		Greeting:  s.config.Assistant.Greeting(),
	})
}

// handleAnswer handles POST /v1/sessions/:id/answer.
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	id := c.Params("id")
	reply, err := s.config.Assistant.Ask(c.Context(), id, req.Query)
	if err != nil {
		return s.fail(c, "answer", err)
	}

	return c.JSON(AnswerResponse{SessionID: id, Reply: reply})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	turns := s.config.Assistant.History(id)
	return c.JSON(HistoryResponse{
		SessionID: id,
		Turns:     turns,
		Count:     len(turns),
	})
}

// handleResetSession handles DELETE /v1/sessions/:id. The session keeps its
// ID and starts over with an empty window.
func (s *Server) handleResetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	s.config.Assistant.ResetSession(id)
	return c.JSON(SessionResponse{
		SessionID: id,
		Greeting:  s.config.Assistant.Greeting(),
	})
}
