// Package local keeps conversation windows in process memory, one per
// session ID.
package local

import (
	"sort"
	"sync"

	"github.com/papercomputeco/pitch/pkg/memory"
)

// Config holds configuration for the local store.
type Config struct {
	// Capacity is the window size handed to every new session.
	Capacity int
}

// Store maps session IDs to their windows.
type Store struct {
	config Config

	mu      sync.RWMutex
	windows map[string]*memory.Window
}

// NewStore creates an empty store.
func NewStore(config Config) *Store {
	if config.Capacity <= 0 {
		config.Capacity = memory.DefaultCapacity
	}
	return &Store{
		config:  config,
		windows: make(map[string]*memory.Window),
	}
}

// Window returns the window for id, creating it on first use.
func (s *Store) Window(id string) *memory.Window {
	s.mu.RLock()
	w, ok := s.windows[id]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[id]; ok {
		return w
	}
	w = memory.NewWindow(s.config.Capacity)
	s.windows[id] = w
	return w
}

// Has reports whether a session has a window.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.windows[id]
	return ok
}

// Reset replaces the session's window with an empty one. Turns appended to
// a window obtained before the reset are not visible afterwards.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[id] = memory.NewWindow(s.config.Capacity)
}

// Drop forgets a session entirely.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, id)
}

// IDs returns the known session IDs, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
