package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brensch/snekclassic/game"
)

// FileStore keeps the mapping as a small JSON object, the same shape a
// browser keeps under its "snakeHighScores" key:
//
//	{"normal":120,"medium":40,"hard":0}
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("score file path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

// Load returns zeros for a missing file. A malformed file also yields zeros,
// together with an error describing what was wrong with it.
func (s *FileStore) Load() (game.HighScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (game.HighScores, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return game.NewHighScores(), nil
	}
	if err != nil {
		return game.NewHighScores(), fmt.Errorf("read scores: %w", err)
	}

	var raw game.HighScores
	if err := json.Unmarshal(b, &raw); err != nil {
		return game.NewHighScores(), fmt.Errorf("decode scores %s: %w", s.path, err)
	}
	return raw.Normalize(), nil
}

// Save merges hs into the stored record, keeping the higher score per
// difficulty, then writes to a temp file and renames it into place. An
// unreadable existing file is replaced.
func (s *FileStore) Save(hs game.HighScores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.read()
	b, err := json.Marshal(current.Merge(hs))
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create score dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	_ = os.Remove(tmpPath)
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename scores: %w", err)
	}
	return nil
}
