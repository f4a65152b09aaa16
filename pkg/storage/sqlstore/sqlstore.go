// Package sqlstore implements storage.Driver on database/sql. The sqlite
// and postgres packages open a connection and hand it here with their
// dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/pitch/pkg/storage"
)

// Dialect captures the differences between supported databases.
type Dialect struct {
	Name string

	// TimeType is the column type used for timestamps.
	TimeType string

	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", TimeType: "TIMESTAMP"}
	Postgres = Dialect{Name: "postgres", TimeType: "TIMESTAMPTZ", Numbered: true}
)

// Store is a storage.Driver over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New migrates the schema and returns a store. The store owns db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			context_ids TEXT NOT NULL DEFAULT '[]',
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			started_at %[1]s NOT NULL,
			completed_at %[1]s NOT NULL
		)`, s.dialect.TimeType),
		`CREATE INDEX IF NOT EXISTS exchanges_session_idx ON exchanges (session_id, completed_at)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ingest_runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			rows_total INTEGER NOT NULL,
			chunks_created INTEGER NOT NULL,
			records_upserted INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			completed_at %s NOT NULL
		)`, s.dialect.TimeType),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *Store) PutExchange(ctx context.Context, ex *storage.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}

	ids, err := json.Marshal(nonNil(ex.ContextIDs))
	if err != nil {
		return fmt.Errorf("encoding context ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO exchanges (id, session_id, query, answer, context_ids, degraded, provider, model, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			session_id = excluded.session_id,
			query = excluded.query,
			answer = excluded.answer,
			context_ids = excluded.context_ids,
			degraded = excluded.degraded,
			provider = excluded.provider,
			model = excluded.model,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`), ex.ID, ex.SessionID, ex.Query, ex.Answer, string(ids), ex.Degraded, ex.Provider, ex.Model,
		ex.StartedAt.UTC(), ex.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("storing exchange %s: %w", ex.ID, err)
	}
	return nil
}

const exchangeColumns = `id, session_id, query, answer, context_ids, degraded, provider, model, started_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(row scanner) (*storage.Exchange, error) {
	var ex storage.Exchange
	var ids string
	if err := row.Scan(&ex.ID, &ex.SessionID, &ex.Query, &ex.Answer, &ids, &ex.Degraded,
		&ex.Provider, &ex.Model, &ex.StartedAt, &ex.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &ex.ContextIDs); err != nil {
		return nil, fmt.Errorf("decoding context ids for %s: %w", ex.ID, err)
	}
	return &ex, nil
}

func (s *Store) GetExchange(ctx context.Context, id string) (*storage.Exchange, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+exchangeColumns+` FROM exchanges WHERE id = ?`), id)
	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading exchange %s: %w", id, err)
	}
	return ex, nil
}

func (s *Store) ListExchanges(ctx context.Context, q storage.ExchangeQuery) ([]*storage.Exchange, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges`
	var args []any
	if q.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, q.SessionID)
	}
	query += ` ORDER BY completed_at, id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var out []*storage.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *Store) PutIngestRun(ctx context.Context, run *storage.IngestRun) error {
	if run == nil {
		return errors.New("cannot store nil ingest run")
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO ingest_runs (id, session_id, source, rows_total, chunks_created, records_upserted, failures, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, run.SessionID, run.Source, run.Rows, run.ChunksCreated, run.RecordsUpserted, run.Failures,
		run.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("storing ingest run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Store) ListIngestRuns(ctx context.Context, limit int) ([]*storage.IngestRun, error) {
	query := `SELECT id, session_id, source, rows_total, chunks_created, records_upserted, failures, completed_at
		FROM ingest_runs ORDER BY completed_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	defer rows.Close()

	var out []*storage.IngestRun
	for rows.Next() {
		var r storage.IngestRun
		var completed time.Time
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Source, &r.Rows, &r.ChunksCreated,
			&r.RecordsUpserted, &r.Failures, &completed); err != nil {
			return nil, fmt.Errorf("scanning ingest run: %w", err)
		}
		r.CompletedAt = completed
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ storage.Driver = (*Store)(nil)
