package scores

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Open picks a store from the path: an empty path keeps scores in memory,
// .db/.sqlite/.sqlite3 opens SQLite and anything else is a JSON file.
// The returned closer is never nil.
func Open(path string) (Store, io.Closer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewMemory(nil), io.NopCloser(nil), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create score dir: %w", err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, io.NopCloser(nil), nil
	}
}
