package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/embeddings"
	"github.com/papercomputeco/pitch/pkg/insights"
	"github.com/papercomputeco/pitch/pkg/llm"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/tabular"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		notFound   storage.NotFoundError
		embedErr   *rag.EmbeddingError
		retrErr    *rag.RetrievalError
		completErr *rag.CompletionError
	)

	switch {
	case errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, rag.ErrEmptyNote),
		errors.Is(err, rag.ErrEmptySessionID),
		errors.Is(err, chunk.ErrSchema),
		errors.Is(err, embeddings.ErrInputTooLong),
		errors.Is(err, insights.ErrUnknownKind),
		errors.Is(err, insights.ErrMissingCustomer),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrNoHeader):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.Is(err, llm.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &embedErr), errors.As(err, &retrErr), errors.As(err, &completErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// fail logs server-side failures and writes the error body.
func (s *Server) fail(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "op", op, "status", status, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
