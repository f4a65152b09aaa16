package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/vector/inmemory"
)

// MockVectorDriver wraps the in-memory driver with failure switches and call
// counters.
type MockVectorDriver struct {
	*inmemory.Driver

	mu sync.Mutex

	// FailQuery and FailUpsert make the respective calls return
	// vector.ErrConnection.
	FailQuery  bool
	FailUpsert bool

	UpsertCalls int
	QueryCalls  int
}

func NewMockVectorDriver(dims uint) *MockVectorDriver {
	return &MockVectorDriver{Driver: inmemory.NewDriver(dims, logger.Nop())}
}

func (m *MockVectorDriver) Upsert(ctx context.Context, records []vector.Record) (int, error) {
	m.mu.Lock()
	m.UpsertCalls++
	fail := m.FailUpsert
	m.mu.Unlock()

	if fail {
		return 0, fmt.Errorf("%w: mock upsert failure", vector.ErrConnection)
	}
	return m.Driver.Upsert(ctx, records)
}

func (m *MockVectorDriver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	m.QueryCalls++
	fail := m.FailQuery
	m.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: mock query failure", vector.ErrConnection)
	}
	return m.Driver.Query(ctx, embedding, topK)
}

// Counts returns the upsert and query call counts.
func (m *MockVectorDriver) Counts() (upserts, queries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpsertCalls, m.QueryCalls
}

var _ vector.Driver = (*MockVectorDriver)(nil)
