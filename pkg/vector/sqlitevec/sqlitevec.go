// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/pitch/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It is fixed when the database is first created; reopening a database
	// with a different value fails with vector.ErrDimensionMismatch.
	Dimensions uint
}

// NewDriver opens (or creates) a sqlite-vec database.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// vec0 and the mapping table must be seen by the same connection, which
	// matters for ":memory:" databases.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if err := migrate(db, c.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: int(c.Dimensions),
		logger:     logger,
	}, nil
}

// migrate creates the schema. vec0 virtual tables use integer rowids, so
// vec_records maps string record IDs to those rowids and carries metadata.
func migrate(db *sql.DB, dims uint) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vec_records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`, dims),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	var stored string
	err := db.QueryRow(`SELECT value FROM vec_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec(`INSERT INTO vec_meta(key, value) VALUES ('dimensions', ?)`, strconv.FormatUint(uint64(dims), 10))
		if err != nil {
			return fmt.Errorf("recording dimensions: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading dimensions: %w", err)
	case stored != strconv.FormatUint(uint64(dims), 10):
		return fmt.Errorf("%w: database was created with %s dimensions, configured %d",
			vector.ErrDimensionMismatch, stored, dims)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert writes records in a single transaction, replacing existing IDs.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := vector.CheckRecords(records, d.dimensions); err != nil {
		return 0, err
	}
	records = vector.Dedupe(records)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		blob := serializeFloat32(r.Embedding)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_records WHERE record_id = ?`, r.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_records SET metadata = ? WHERE rowid = ?`, string(metadata), rowID,
			); err != nil {
				return 0, fmt.Errorf("updating record %s: %w", r.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return 0, fmt.Errorf("deleting old embedding for %s: %w", r.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_records(record_id, metadata) VALUES (?, ?)`, r.ID, string(metadata),
			)
			if err != nil {
				return 0, fmt.Errorf("inserting record %s: %w", r.ID, err)
			}
			rowID, err = result.LastInsertId()
			if err != nil {
				return 0, fmt.Errorf("getting rowid for %s: %w", r.ID, err)
			}
		default:
			return 0, fmt.Errorf("checking for existing record %s: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`, rowID, blob,
		); err != nil {
			return 0, fmt.Errorf("inserting embedding for %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records to sqlite-vec", "count", len(records))

	return len(records), nil
}

// Query runs a KNN search via vec0 MATCH and joins back to the record table.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			r.record_id,
			r.metadata,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var id, metadata string
		var distance float64
		if err := rows.Scan(&id, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		md, err := decodeMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}

		results = append(results, vector.QueryResult{
			Record: vector.Record{ID: id, Metadata: md},
			// lower distance = higher similarity
			Score: float32(1.0 / (1.0 + distance)),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))

	return results, nil
}

func decodeMetadata(raw string) (map[string]string, error) {
	md := map[string]string{}
	if raw == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, err
	}
	return md, nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

// Get retrieves records by their IDs, including embeddings.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	in, args := inClause(ids)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT r.record_id, r.metadata, ve.embedding
		FROM vec_records r
		LEFT JOIN vec_embeddings ve ON ve.rowid = r.rowid
		WHERE r.record_id IN (%s)
	`, in), args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]vector.Record, 0, len(ids))
	for rows.Next() {
		var id, metadata string
		var blob []byte
		if err := rows.Scan(&id, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		md, err := decodeMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}

		r := vector.Record{ID: id, Metadata: md}
		if len(blob) > 0 {
			if r.Embedding, err = deserializeFloat32(blob); err != nil {
				return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
			}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Delete removes records by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	in, args := inClause(ids)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_embeddings WHERE rowid IN (SELECT rowid FROM vec_records WHERE record_id IN (%s))`, in,
	), args...); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_records WHERE record_id IN (%s)`, in,
	), args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted records from sqlite-vec", "count", len(ids))

	return nil
}

// Dimensions reports the vec0 column width.
func (d *Driver) Dimensions() int {
	return d.dimensions
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
