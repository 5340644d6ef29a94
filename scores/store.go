// Package scores persists the best score reached on each difficulty.
//
// Stores never fail a game: a missing or unreadable record loads as zeros,
// and callers decide whether to log the accompanying error. Save keeps the
// higher of the stored and given score per difficulty, so sessions sharing a
// store never lower each other's records.
package scores

import (
	"sync"

	"github.com/brensch/snekclassic/game"
)

// Store is the persistence contract the engine talks to.
type Store interface {
	Load() (game.HighScores, error)
	Save(game.HighScores) error
}

// Memory keeps high scores in process. The zero value is ready to use.
type Memory struct {
	mu     sync.Mutex
	scores game.HighScores
	saves  int
}

func NewMemory(initial game.HighScores) *Memory {
	return &Memory{scores: initial.Normalize()}
}

func (m *Memory) Load() (game.HighScores, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores.Normalize(), nil
}

func (m *Memory) Save(hs game.HighScores) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = m.scores.Merge(hs)
	m.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
