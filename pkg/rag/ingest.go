package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/worker"
)

// NoteIDPrefix namespaces records written by UpdateKnowledge.
const NoteIDPrefix = "note-"

// IngestFailure names a rejected row by its position in the batch.
type IngestFailure struct {
	RecordIndex int    `json:"record_index"`
	Reason      string `json:"reason"`

	Err error `json:"-"`
}

// IsSchemaFailure reports whether a failure was a schema rejection.
func (f IngestFailure) IsSchemaFailure() bool {
	return errors.Is(f.Err, chunk.ErrSchema)
}

// IngestOutcome summarises an ingest call.
type IngestOutcome struct {
	ChunksCreated   int             `json:"chunks_created"`
	RecordsUpserted int             `json:"records_upserted"`
	Failures        []IngestFailure `json:"failures"`
}

// Ingest converts rows to chunks, embeds them and writes them to the index
// in a single upsert. Rows that fail the schema, or repeat the ID of an
// earlier row in the batch, are recorded in the outcome and skipped. An
// embedding failure ends the call before anything is written.
func (s *Sessions) Ingest(ctx context.Context, sessionID string, rows []chunk.Row) (*IngestOutcome, error) {
	return s.IngestSource(ctx, sessionID, "", rows)
}

// IngestSource is Ingest with the rows' origin (a file name, say) recorded
// in the transcript.
func (s *Sessions) IngestSource(ctx context.Context, sessionID, source string, rows []chunk.Row) (*IngestOutcome, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := s.lock(sessionID)
	defer unlock()

	outcome := &IngestOutcome{Failures: []IngestFailure{}}
	records := make([]vector.Record, 0, len(rows))
	seen := make(map[string]int, len(rows))

	reject := func(i int, err error) {
		s.logger.Warn("row rejected", "row", i, "error", err)
		outcome.Failures = append(outcome.Failures, IngestFailure{RecordIndex: i, Reason: err.Error(), Err: err})
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcome, fmt.Errorf("ingest cancelled at row %d: %w", i, err)
		}

		c, err := s.builder.Build(row)
		if err != nil {
			reject(i, err)
			continue
		}
		if first, ok := seen[c.ID]; ok {
			reject(i, s.builder.Duplicate(row, first))
			continue
		}
		seen[c.ID] = i
		outcome.ChunksCreated++

		vec, err := s.embed(ctx, "ingest", c.Text)
		if err != nil {
			return outcome, err
		}
		records = append(records, vector.NewRecord(c.ID, vec, c.Text))
	}

	if len(records) > 0 {
		uctx, cancel := context.WithTimeout(ctx, s.config.RetrievalTimeout)
		n, err := s.config.Index.Upsert(uctx, records)
		cancel()
		if err != nil {
			s.logger.Error("upsert failed", "records", len(records), "error", err)
			return outcome, &RetrievalError{Op: "ingest", Err: err}
		}
		outcome.RecordsUpserted = n
	}

	s.enqueue(worker.Job{Ingest: &storage.IngestRun{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		Source:          source,
		Rows:            len(rows),
		ChunksCreated:   outcome.ChunksCreated,
		RecordsUpserted: outcome.RecordsUpserted,
		Failures:        len(outcome.Failures),
		CompletedAt:     time.Now(),
	}})

	s.logger.Info("ingest complete",
		"session_id", sessionID,
		"source", source,
		"rows", len(rows),
		"upserted", outcome.RecordsUpserted,
		"failures", len(outcome.Failures),
	)
	return outcome, nil
}

// UpdateKnowledge stores a free-text note in the index. The record ID is
// derived from the note's content, so the same note written twice is one
// record and distinct notes never collide.
func (s *Sessions) UpdateKnowledge(ctx context.Context, text string) (vector.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return vector.Record{}, ErrEmptyNote
	}

	vec, err := s.embed(ctx, "update_knowledge", text)
	if err != nil {
		return vector.Record{}, err
	}

	rec := vector.NewRecord(NoteIDPrefix+chunk.ContentHash(text), vec, text)

	uctx, cancel := context.WithTimeout(ctx, s.config.RetrievalTimeout)
	defer cancel()
	if _, err := s.config.Index.Upsert(uctx, []vector.Record{rec}); err != nil {
		s.logger.Error("note upsert failed", "id", rec.ID, "error", err)
		return vector.Record{}, &RetrievalError{Op: "update_knowledge", Err: err}
	}

	s.logger.Info("knowledge updated", "id", rec.ID)
	return rec, nil
}
