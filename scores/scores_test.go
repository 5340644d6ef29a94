package scores

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/snekclassic/game"
)

func assertScores(t *testing.T, got, want game.HighScores) {
	t.Helper()
	for _, d := range game.Difficulties {
		if got[d] != want[d] {
			t.Fatalf("%s=%d want=%d (got %v)", d, got[d], want[d], got)
		}
	}
	if len(got) != len(game.Difficulties) {
		t.Fatalf("unexpected keys in %v", got)
	}
}

func TestFileStore_MissingFileIsZeros(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "scores.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	hs, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, hs, game.NewHighScores())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scores.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	want := game.HighScores{game.Normal: 120, game.Medium: 40, game.Hard: 0}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, got, want)
}

func TestFileStore_MalformedIsZeros(t *testing.T) {
	tests := map[string]string{
		"garbage":    "not json at all",
		"truncated":  `{"normal": 12`,
		"wrong type": `["normal", 12]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scores.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("seed: %v", err)
			}
			s, _ := NewFileStore(path)
			hs, err := s.Load()
			if err == nil {
				t.Fatalf("expected decode error")
			}
			assertScores(t, hs, game.NewHighScores())
		})
	}
}

func TestFileStore_PartialAndUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	if err := os.WriteFile(path, []byte(`{"hard": 70, "nightmare": 5, "medium": -3}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, _ := NewFileStore(path)
	hs, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, hs, game.HighScores{game.Normal: 0, game.Medium: 0, game.Hard: 70})
}

func TestFileStore_RequiresPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestSQLiteStore_RoundTripNeverLowers(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	hs, err := s.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	assertScores(t, hs, game.NewHighScores())

	if err := s.Save(game.HighScores{game.Normal: 50, game.Medium: 30, game.Hard: 10}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A stale session saves a lower normal score and a better hard one.
	if err := s.Save(game.HighScores{game.Normal: 20, game.Medium: 30, game.Hard: 90}); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, got, game.HighScores{game.Normal: 50, game.Medium: 30, game.Hard: 90})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(game.HighScores{game.Medium: 60}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, got, game.HighScores{game.Normal: 0, game.Medium: 60, game.Hard: 0})
}

func TestMemory(t *testing.T) {
	var m Memory
	hs, _ := m.Load()
	assertScores(t, hs, game.NewHighScores())

	if err := m.Save(game.HighScores{game.Hard: 30}); err != nil {
		t.Fatalf("save: %v", err)
	}
	hs, _ = m.Load()
	assertScores(t, hs, game.HighScores{game.Normal: 0, game.Medium: 0, game.Hard: 30})
	if m.Saves() != 1 {
		t.Fatalf("saves=%d want=1", m.Saves())
	}

	// Mutating a loaded map must not leak into the store.
	hs[game.Hard] = 999
	again, _ := m.Load()
	if again[game.Hard] != 30 {
		t.Fatalf("store aliased caller map")
	}
}

func TestOpen_PicksBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		path string
		want string
	}{
		{"", "*scores.Memory"},
		{filepath.Join(dir, "a", "scores.json"), "*scores.FileStore"},
		{filepath.Join(dir, "b", "scores.db"), "*scores.SQLiteStore"},
		{filepath.Join(dir, "c", "scores.SQLITE"), "*scores.SQLiteStore"},
	}
	for _, tc := range tests {
		s, closer, err := Open(tc.path)
		if err != nil {
			t.Fatalf("open %q: %v", tc.path, err)
		}
		if got := fmt.Sprintf("%T", s); got != tc.want {
			t.Fatalf("open %q: got %s want %s", tc.path, got, tc.want)
		}
		if err := s.Save(game.HighScores{game.Normal: 10}); err != nil {
			t.Fatalf("save via %s: %v", tc.want, err)
		}
		if err := closer.Close(); err != nil {
			t.Fatalf("close %s: %v", tc.want, err)
		}
	}
}

func TestSave_NeverLowersRecord(t *testing.T) {
	dir := t.TempDir()
	file, err := NewFileStore(filepath.Join(dir, "scores.json"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	db, err := NewSQLiteStore(filepath.Join(dir, "scores.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer db.Close()

	tests := map[string]Store{
		"memory": NewMemory(nil),
		"file":   file,
		"sqlite": db,
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			// Two sessions saved from their own cached view of the record.
			if err := s.Save(game.HighScores{game.Normal: 20}); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.Save(game.HighScores{game.Normal: 10, game.Hard: 40}); err != nil {
				t.Fatalf("save stale: %v", err)
			}
			got, err := s.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			assertScores(t, got, game.HighScores{game.Normal: 20, game.Medium: 0, game.Hard: 40})
		})
	}
}

func TestFileStore_SaveReplacesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, _ := NewFileStore(path)
	if err := s.Save(game.HighScores{game.Medium: 30}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertScores(t, got, game.HighScores{game.Normal: 0, game.Medium: 30, game.Hard: 0})
}
