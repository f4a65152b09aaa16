package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	sessionFile = "session.json"
)

// SessionState is the chat session the CLI is attached to. `pitch chat`
// resumes it across invocations until `pitch chat --new` or a reset clears it.
type SessionState struct {
	// ID is the server-side session identifier.
	ID string `json:"id"`

	// Target is the API server the session lives on.
	Target string `json:"target"`

	StartedAt time.Time `json:"started_at"`
}

// LoadSession returns the persisted session, or nil, nil when none exists.
func (m *Manager) LoadSession(overrideDir string) (*SessionState, error) {
	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSession persists state to session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes session.json. A missing file is not an error.
func (m *Manager) ClearSession(overrideDir string) error {
	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
