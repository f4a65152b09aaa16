// Package memory holds bounded per-session conversation history.
//
// A [Window] keeps at most k turns in insertion order. Appending past
// capacity silently evicts the oldest turns. Windows are safe for concurrent
// use; the local subpackage hands out one window per session.
package memory

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity is the number of turns kept when none is configured.
const DefaultCapacity = 40

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ErrInvalidRole is returned when appending a turn with an unknown role.
var ErrInvalidRole = errors.New("invalid turn role")

// Turn is a single message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Window is a FIFO-bounded list of turns.
type Window struct {
	mu       sync.Mutex
	turns    []Turn
	capacity int
}

// NewWindow returns an empty window holding at most capacity turns.
// Non-positive capacities use DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// Append adds turns atomically: either every turn is appended or, when a
// role is invalid, none is.
func (w *Window) Append(turns ...Turn) error {
	for i, t := range turns {
		switch t.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidRole, i, t.Role)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, turns...)
	if over := len(w.turns) - w.capacity; over > 0 {
		// copy so the evicted prefix can be collected
		kept := make([]Turn, w.capacity)
		copy(kept, w.turns[over:])
		w.turns = kept
	}
	return nil
}

// Turns returns a copy of the retained turns, oldest first.
func (w *Window) Turns() []Turn {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Clear drops every turn.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = nil
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

func (w *Window) Capacity() int {
	return w.capacity
}
