// Package vectorutils builds vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/vector/chroma"
	"github.com/papercomputeco/pitch/pkg/vector/chromem"
	"github.com/papercomputeco/pitch/pkg/vector/inmemory"
	"github.com/papercomputeco/pitch/pkg/vector/pgvector"
	"github.com/papercomputeco/pitch/pkg/vector/qdrant"
	"github.com/papercomputeco/pitch/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderChromem  = "chromem"
	ProviderPgvector = "pgvector"
	ProviderInMemory = "inmemory"
)

// SupportedProviders lists the provider names NewVectorDriver accepts.
func SupportedProviders() []string {
	return []string{ProviderSQLite, ProviderChroma, ProviderQdrant, ProviderChromem, ProviderPgvector, ProviderInMemory}
}

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is provider specific: a file path for sqlite, a directory for
	// chromem, a URL for chroma and qdrant, a connection string for pgvector.
	Target string

	Collection string
	Dimensions uint
	APIKey     string
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	switch o.ProviderType {
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, log)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
			Dimensions:     int(o.Dimensions),
		}, log)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.Target,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
			APIKey:         o.APIKey,
		}, log)
	case ProviderChromem:
		return chromem.NewDriver(chromem.Config{
			Dir:            o.Target,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, log)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnStr:    o.Target,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, log)
	case ProviderInMemory, "memory":
		return inmemory.NewDriver(o.Dimensions, log), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
