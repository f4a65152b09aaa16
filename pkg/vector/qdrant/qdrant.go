// Package qdrant provides a vector driver backed by Qdrant over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/pitch/pkg/vector"
)

const (
	// DefaultCollectionName is used when Config.CollectionName is empty.
	DefaultCollectionName = "pitch"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// payloadRecordID holds the caller's record ID. Qdrant point IDs must be
	// unsigned integers or UUIDs, so points are keyed by PointID(recordID).
	payloadRecordID = "record_id"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host", "host:port" or a URL such as "https://host:6334".
	Target string

	CollectionName string
	Dimensions     uint
	APIKey         string
}

// Endpoint is a parsed Qdrant target.
type Endpoint struct {
	Host   string
	Port   int
	UseTLS bool
}

// ParseTarget splits a target into host, port and TLS setting.
func ParseTarget(target string) (Endpoint, error) {
	if target == "" {
		return Endpoint{}, fmt.Errorf("qdrant target is required")
	}

	ep := Endpoint{Port: DefaultPort}
	hostport := target

	if u, err := url.Parse(target); err == nil && u.Host != "" {
		ep.UseTLS = u.Scheme == "https"
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		// no port present
		ep.Host = hostport
		return ep, nil
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid qdrant port %q: %w", port, err)
	}
	ep.Host = host
	ep.Port = p
	return ep, nil
}

// PointID maps a record ID to the deterministic UUID used as its point ID.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("pitch:"+recordID)).String()
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions int
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection exists with the
// configured dimensions. An existing collection of a different size fails
// with vector.ErrDimensionMismatch.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	ep, err := ParseTarget(c.Target)
	if err != nil {
		return nil, err
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   ep.Host,
		Port:   ep.Port,
		APIKey: c.APIKey,
		UseTLS: ep.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: c.CollectionName,
		dimensions: int(c.Dimensions),
		logger:     logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant vector driver initialized",
		"host", ep.Host,
		"port", ep.Port,
		"collection", c.CollectionName,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}

	if !exists {
		err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(d.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("%w: creating collection: %w", vector.ErrConnection, err)
		}
		return nil
	}

	info, err := d.client.GetCollectionInfo(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: reading collection info: %w", vector.ErrConnection, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && int(size) != d.dimensions {
		return fmt.Errorf("%w: collection %s has %d dimensions, configured %d",
			vector.ErrDimensionMismatch, d.collection, size, d.dimensions)
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

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[payloadRecordID] = r.ID

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := true
	if _, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return 0, fmt.Errorf("%w: upserting points: %w", vector.ErrConnection, err)
	}

	d.logger.Debug("upserted points to qdrant", "count", len(points))
	return len(points), nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %w", vector.ErrConnection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		id, md := fromPayload(p.GetPayload())
		results = append(results, vector.QueryResult{
			Record: vector.Record{ID: id, Metadata: md},
			Score:  p.GetScore(),
		})
	}
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(PointID(id))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting points: %w", vector.ErrConnection, err)
	}

	records := make([]vector.Record, 0, len(points))
	for _, p := range points {
		id, md := fromPayload(p.GetPayload())
		records = append(records, vector.Record{
			ID:        id,
			Embedding: p.GetVectors().GetVector().GetData(),
			Metadata:  md,
		})
	}
	return records, nil
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(PointID(id))
	}

	wait := true
	if _, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	}); err != nil {
		return fmt.Errorf("%w: deleting points: %w", vector.ErrConnection, err)
	}
	return nil
}

func (d *Driver) Dimensions() int {
	return d.dimensions
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func fromPayload(payload map[string]*qdrant.Value) (string, map[string]string) {
	md := make(map[string]string, len(payload))
	var id string
	for k, v := range payload {
		if k == payloadRecordID {
			id = v.GetStringValue()
			continue
		}
		md[k] = v.GetStringValue()
	}
	return id, md
}

var _ vector.Driver = (*Driver)(nil)
