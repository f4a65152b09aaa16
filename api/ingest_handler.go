package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/tabular"
)

// IngestRequest is the body of POST /v1/sessions/:id/ingest.
type IngestRequest struct {
	Source string      `json:"source,omitempty"`
	Rows   []chunk.Row `json:"rows"`
}

// IngestResponse reports an ingest. Error is set when the batch could not be
// written even though rows were processed.
type IngestResponse struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source,omitempty"`
	*rag.IngestOutcome
	Error string `json:"error,omitempty"`
}

// NoteRequest is the body of POST /v1/knowledge.
type NoteRequest struct {
	Text string `json:"text"`
}

// NoteResponse echoes the stored note.
type NoteResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Rows) == 0 {
		return badRequest(c, "rows are required")
	}

	return s.ingest(c, req.Source, req.Rows)
}

// handleUpload handles POST /v1/sessions/:id/upload with a multipart "file"
// field holding a CSV or XLSX spreadsheet.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field is required")
	}
	if !tabular.Supported(fh.Filename) {
		return badRequest(c, "file must be .csv or .xlsx")
	}

	f, err := fh.Open()
	if err != nil {
		return s.fail(c, "upload", err)
	}
	defer f.Close()

	rows, err := tabular.Read(fh.Filename, f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return s.ingest(c, fh.Filename, rows)
}

func (s *Server) ingest(c *fiber.Ctx, source string, rows []chunk.Row) error {
	id := c.Params("id")
	outcome, err := s.config.Assistant.IngestSource(c.Context(), id, source, rows)
	if err != nil && outcome == nil {
		return s.fail(c, "ingest", err)
	}

	resp := IngestResponse{SessionID: id, Source: source, IngestOutcome: outcome}
	if err != nil {
		s.logger.Error("ingest failed", "session_id", id, "error", err)
		resp.Error = err.Error()
		return c.Status(statusFor(err)).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) handleKnowledge(c *fiber.Ctx) error {
	var req NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	rec, err := s.config.Assistant.UpdateKnowledge(c.Context(), req.Text)
	if err != nil {
		return s.fail(c, "knowledge", err)
	}

	return c.Status(fiber.StatusCreated).JSON(NoteResponse{ID: rec.ID, Text: rec.Text()})
}
