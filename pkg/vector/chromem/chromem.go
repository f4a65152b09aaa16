// Package chromem provides an embedded vector driver backed by chromem-go.
// Collections persist to a directory when one is configured.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/papercomputeco/pitch/pkg/vector"
)

// DefaultCollectionName is used when Config.CollectionName is empty.
const DefaultCollectionName = "pitch"

// errNoEmbeddingFunc is returned by the collection's embedding func. Every
// record arrives with its embedding, so chromem must never compute one.
var errNoEmbeddingFunc = errors.New("chromem collection does not compute embeddings")

// Config holds configuration for the chromem driver.
type Config struct {
	// Dir is the persistence directory. Empty keeps the index in memory.
	Dir string

	// Compress gzips persisted documents.
	Compress bool

	CollectionName string
	Dimensions     uint
}

// Driver implements vector.Driver using chromem-go.
type Driver struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
	logger     *slog.Logger
}

// NewDriver opens the database and gets or creates the collection.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("chromem embedding dimensions cannot be 0, must be configured")
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}

	db := chromem.NewDB()
	if c.Dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(c.Dir, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem database: %w", err)
		}
	}

	embed := func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	}

	collection, err := db.GetOrCreateCollection(c.CollectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("getting chromem collection: %w", err)
	}

	d := &Driver{
		db:         db,
		collection: collection,
		dimensions: int(c.Dimensions),
		logger:     logger,
	}

	if err := d.checkStoredDimensions(); err != nil {
		return nil, err
	}

	logger.Info("chromem vector driver initialized",
		"dir", c.Dir,
		"collection", c.CollectionName,
		"documents", collection.Count(),
	)

	return d, nil
}

// checkStoredDimensions samples one persisted document and compares its
// vector length with the configured dimensions.
func (d *Driver) checkStoredDimensions() error {
	if d.collection.Count() == 0 {
		return nil
	}

	probe := make([]float32, d.dimensions)
	probe[0] = 1
	res, err := d.collection.QueryEmbedding(context.Background(), probe, 1, nil, nil)
	if err != nil {
		// chromem rejects mismatched query lengths outright
		return fmt.Errorf("%w: %w", vector.ErrDimensionMismatch, err)
	}
	if len(res) > 0 && len(res[0].Embedding) != d.dimensions {
		return fmt.Errorf("%w: collection has %d dimensions, configured %d",
			vector.ErrDimensionMismatch, len(res[0].Embedding), d.dimensions)
	}
	return nil
}

func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := vector.CheckRecords(records, d.dimensions); err != nil {
		return 0, err
	}
	records = vector.Dedupe(records)

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text(),
			Metadata:  r.Metadata,
			Embedding: emb,
		}
	}

	// AddDocuments overwrites documents with an existing ID.
	if err := d.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("upserted documents to chromem", "count", len(docs))
	return len(docs), nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	// chromem requires nResults <= document count
	n := min(topK, d.collection.Count())
	if n == 0 {
		return []vector.QueryResult{}, nil
	}

	res, err := d.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}

	results := make([]vector.QueryResult, len(res))
	for i, r := range res {
		results[i] = vector.QueryResult{
			Record: vector.Record{ID: r.ID, Metadata: metadataOf(r.Metadata, r.Content)},
			Score:  r.Similarity,
		}
	}
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	records := make([]vector.Record, 0, len(ids))
	for _, id := range ids {
		doc, err := d.collection.GetByID(ctx, id)
		if err != nil {
			// GetByID errors for unknown IDs
			continue
		}
		records = append(records, vector.Record{
			ID:        doc.ID,
			Embedding: doc.Embedding,
			Metadata:  metadataOf(doc.Metadata, doc.Content),
		})
	}
	return records, nil
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := d.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

func (d *Driver) Dimensions() int {
	return d.dimensions
}

func (d *Driver) Close() error { return nil }

func metadataOf(md map[string]string, content string) map[string]string {
	out := make(map[string]string, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	if _, ok := out[vector.MetadataText]; !ok {
		out[vector.MetadataText] = content
	}
	return out
}

var _ vector.Driver = (*Driver)(nil)
