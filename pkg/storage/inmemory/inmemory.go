// Package inmemory provides a map-backed transcript store.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/pitch/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards both maps
	mu sync.RWMutex

	exchanges map[string]*storage.Exchange
	order     []string
	runs      []*storage.IngestRun
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		exchanges: make(map[string]*storage.Exchange),
	}
}

func (s *Driver) PutExchange(_ context.Context, ex *storage.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exchanges[ex.ID]; !ok {
		s.order = append(s.order, ex.ID)
	}
	cp := *ex
	s.exchanges[ex.ID] = &cp
	return nil
}

func (s *Driver) GetExchange(_ context.Context, id string) (*storage.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ex, ok := s.exchanges[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	cp := *ex
	return &cp, nil
}

func (s *Driver) ListExchanges(_ context.Context, q storage.ExchangeQuery) ([]*storage.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Exchange
	for _, id := range s.order {
		ex := s.exchanges[id]
		if q.SessionID != "" && ex.SessionID != q.SessionID {
			continue
		}
		cp := *ex
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})

	if q.Limit > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
		if len(out) > q.Limit {
			out = out[:q.Limit]
		}
	}
	return out, nil
}

func (s *Driver) PutIngestRun(_ context.Context, run *storage.IngestRun) error {
	if run == nil {
		return errors.New("cannot store nil ingest run")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs = append(s.runs, &cp)
	return nil
}

func (s *Driver) ListIngestRuns(_ context.Context, limit int) ([]*storage.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.IngestRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		cp := *s.runs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
