// Package sqlitepath resolves where pitch keeps its embedded SQLite files.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/pitch/pkg/dotdir"
)

// Default file names inside the .pitch/ directory.
const (
	KnowledgeDB  = "knowledge.db"
	TranscriptDB = "transcripts.db"
)

// Resolve returns the path for the named database. An explicit override
// wins, then an existing file under $XDG_DATA_HOME/pitch, then the file in
// the resolved .pitch/ directory (which is created when missing).
func Resolve(override, configDir, name string) (string, error) {
	if override != "" {
		return override, nil
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidate := filepath.Join(xdgHome, "pitch", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	path, err := dotdir.NewManager().Path(configDir, name)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}

	return path, nil
}
