// Package inmemory provides a process-local vector driver using exact cosine
// similarity. It backs tests and single-process demos.
package inmemory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/pitch/pkg/vector"
)

// Driver is a brute-force cosine index guarded by a RWMutex.
type Driver struct {
	mu         sync.RWMutex
	records    map[string]vector.Record
	order      []string
	dimensions int
	logger     *slog.Logger
}

// NewDriver returns an empty index. With dimensions 0 the index adopts the
// length of the first vector written to it.
func NewDriver(dimensions uint, logger *slog.Logger) *Driver {
	return &Driver{
		records:    map[string]vector.Record{},
		dimensions: int(dimensions),
		logger:     logger,
	}
}

func (d *Driver) Upsert(_ context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dims := d.dimensions
	if dims == 0 {
		dims = len(records[0].Embedding)
	}
	if err := vector.CheckRecords(records, dims); err != nil {
		return 0, err
	}
	d.dimensions = dims

	records = vector.Dedupe(records)
	for _, r := range records {
		if _, ok := d.records[r.ID]; !ok {
			d.order = append(d.order, r.ID)
		}
		d.records[r.ID] = clone(r)
	}

	d.logger.Debug("upserted records in memory", "count", len(records), "total", len(d.records))
	return len(records), nil
}

func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := vector.CheckQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	results := make([]vector.QueryResult, 0, len(d.records))
	for _, id := range d.order {
		r := d.records[id]
		results = append(results, vector.QueryResult{
			Record: clone(r),
			Score:  cosine(embedding, r.Embedding),
		})
	}

	// stable so equal scores keep insertion order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]vector.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := d.records[id]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	drop := map[string]bool{}
	for _, id := range ids {
		if _, ok := d.records[id]; ok {
			delete(d.records, id)
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}

	kept := d.order[:0]
	for _, id := range d.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	d.order = kept
	return nil
}

// Len reports the number of stored records.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Driver) Dimensions() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dimensions
}

func (d *Driver) Close() error { return nil }

func clone(r vector.Record) vector.Record {
	emb := make([]float32, len(r.Embedding))
	copy(emb, r.Embedding)
	md := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		md[k] = v
	}
	return vector.Record{ID: r.ID, Embedding: emb, Metadata: md}
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ vector.Driver = (*Driver)(nil)
