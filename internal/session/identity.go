// Package session runs one editor session: identity, the open document's
// editing surface, heartbeats, and teardown.
package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LoadID returns this session's identity: generated once and cached on disk,
// so restarts of the same editor instance keep their id while separate
// instances stay distinct. An unusable cache dir degrades to a fresh id.
func LoadID() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return uuid.NewString()
	}
	path := filepath.Join(dir, "inkwell", "session-id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		_ = os.WriteFile(path, []byte(id), 0o644)
	}
	return id
}
