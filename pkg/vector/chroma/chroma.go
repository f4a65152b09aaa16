// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/pitch/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for pitch records.
	DefaultCollectionName = "sales"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	dimensions     int
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is the embedding length written to the collection. Zero
	// lets Chroma infer it from the first write.
	Dimensions int

	// MaxRetries bounds connection attempts while Chroma starts up.
	MaxRetries int

	// RetryDelay is the first backoff; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver connects to Chroma and gets or creates the collection, retrying
// with exponential backoff while the server is unavailable.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		id, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = id
			logger.Info("connected to chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", id,
			)
			return d, nil
		}
		lastErr = err

		if attempt < maxRetries {
			logger.Warn("chroma not ready, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
			time.Sleep(delay)
			delay = min(delay*2, maxDelay)
		}
	}

	return nil, fmt.Errorf("%w: getting or creating collection %q after %d attempts: %w",
		vector.ErrConnection, collectionName, maxRetries, lastErr)
}

func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	resp, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	create, err := d.do(ctx, http.MethodPost, collectionsPath, chromaCreateRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	})
	if err != nil {
		return "", err
	}
	defer create.Body.Close()

	if create.StatusCode != http.StatusOK && create.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(create.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", create.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(create.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// do issues a JSON request against the Chroma API. Transport failures wrap
// vector.ErrConnection.
func (d *Driver) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return resp, nil
}

// collectionCall posts body to a collection sub-resource and decodes the
// response into out when non-nil.
func (d *Driver) collectionCall(ctx context.Context, op string, body, out any) error {
	resp, err := d.do(ctx, http.MethodPost, collectionsPath+"/"+d.collectionID+"/"+op, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: chroma %s: status %d: %s", vector.ErrConnection, op, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

// Upsert writes records, replacing existing IDs.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := vector.CheckRecords(records, d.dimensions); err != nil {
		return 0, err
	}
	records = vector.Dedupe(records)

	req := chromaUpsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]string, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Embeddings[i] = r.Embedding
		req.Metadatas[i] = r.Metadata
		req.Documents[i] = r.Text()
	}

	if err := d.collectionCall(ctx, "upsert", req, nil); err != nil {
		return 0, err
	}

	d.logger.Debug("upserted records to chroma", "count", len(records))

	return len(records), nil
}

// Query finds the topK most similar records to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	var queryResp chromaQueryResponse
	err := d.collectionCall(ctx, "query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, err
	}

	results := []vector.QueryResult{}
	if len(queryResp.IDs) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	var documents []*string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{
			Record: vector.Record{
				ID:       id,
				Metadata: toMetadata(at(metadatas, i), at(documents, i)),
			},
		}

		// Lower distance = higher similarity
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))

	return results, nil
}

// Get retrieves records by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	err := d.collectionCall(ctx, "get", chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "documents", "embeddings"},
	}, &getResp)
	if err != nil {
		return nil, err
	}

	records := make([]vector.Record, len(getResp.IDs))
	for i, id := range getResp.IDs {
		records[i] = vector.Record{
			ID:       id,
			Metadata: toMetadata(at(getResp.Metadatas, i), at(getResp.Documents, i)),
		}
		if i < len(getResp.Embeddings) {
			records[i].Embedding = getResp.Embeddings[i]
		}
	}

	return records, nil
}

// Delete removes records by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.collectionCall(ctx, "delete", chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return err
	}

	d.logger.Debug("deleted records from chroma", "count", len(ids))

	return nil
}

// Dimensions reports the configured embedding length.
func (d *Driver) Dimensions() int {
	return d.dimensions
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func at[T any](s []T, i int) T {
	var zero T
	if i < len(s) {
		return s[i]
	}
	return zero
}

// toMetadata flattens Chroma metadata into strings and fills MetadataText from
// the stored document when the metadata lacks it.
func toMetadata(raw map[string]any, document *string) map[string]string {
	md := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		if s, ok := v.(string); ok {
			md[k] = s
		} else if v != nil {
			md[k] = fmt.Sprint(v)
		}
	}
	if _, ok := md[vector.MetadataText]; !ok && document != nil {
		md[vector.MetadataText] = *document
	}
	return md
}

var _ vector.Driver = (*Driver)(nil)
