package game

import (
	"fmt"
	"time"
)

type Difficulty string

const (
	Normal Difficulty = "normal"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the selectable difficulties in menu order.
var Difficulties = []Difficulty{Normal, Medium, Hard}

// ParseDifficulty accepts the lower-case difficulty names.
func ParseDifficulty(s string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// DifficultySettings is the bundle a difficulty selects.
type DifficultySettings struct {
	Interval  time.Duration // base tick interval
	Obstacles int
}

// HighScores maps a difficulty to the best score ever reached on it.
type HighScores map[Difficulty]int

// NewHighScores returns a mapping with every known difficulty at zero.
func NewHighScores() HighScores {
	hs := make(HighScores, len(Difficulties))
	for _, d := range Difficulties {
		hs[d] = 0
	}
	return hs
}

// Normalize fills missing difficulties, clamps negatives and drops unknown keys.
func (hs HighScores) Normalize() HighScores {
	out := NewHighScores()
	for d, v := range hs {
		if _, ok := out[d]; !ok {
			continue
		}
		if v > 0 {
			out[d] = v
		}
	}
	return out
}

// Merge returns the normalized per-difficulty maximum of hs and other.
func (hs HighScores) Merge(other HighScores) HighScores {
	out := hs.Normalize()
	for d, v := range other.Normalize() {
		if v > out[d] {
			out[d] = v
		}
	}
	return out
}

func (hs HighScores) Clone() HighScores {
	out := make(HighScores, len(hs))
	for k, v := range hs {
		out[k] = v
	}
	return out
}

// Config is the fixed geometry and tuning of a game.
// It is read once when an engine is built and never changes afterwards.
type Config struct {
	Width    int32 // grid cells
	Height   int32 // grid cells
	CellSize int32 // pixels per cell, for renderers

	Start       Point // head of the starting snake
	StartLength int   // starting segments, laid out to the left of Start

	// ExclusionRadius keeps obstacles out of the box |dx| < r && |dy| < r around Start.
	ExclusionRadius int32

	ScoreIncrement int
	SpeedupEvery   int           // speed up whenever score is a multiple of this
	SpeedupStep    time.Duration // interval decrease per speed-up
	MinInterval    time.Duration // no speed-up once the interval is at or below this

	Difficulties map[Difficulty]DifficultySettings
}

// DefaultConfig matches the classic 400px canvas at 20px per cell.
func DefaultConfig() Config {
	return Config{
		Width:           20,
		Height:          20,
		CellSize:        20,
		Start:           Point{X: 5, Y: 10},
		StartLength:     3,
		ExclusionRadius: 3,
		ScoreIncrement:  10,
		SpeedupEvery:    50,
		SpeedupStep:     5 * time.Millisecond,
		MinInterval:     50 * time.Millisecond,
		Difficulties: map[Difficulty]DifficultySettings{
			Normal: {Interval: 100 * time.Millisecond, Obstacles: 0},
			Medium: {Interval: 80 * time.Millisecond, Obstacles: 3},
			Hard:   {Interval: 60 * time.Millisecond, Obstacles: 6},
		},
	}
}

// Validate checks that the starting snake fits on the grid and every
// difficulty has a usable interval.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid grid %dx%d", c.Width, c.Height)
	}
	if c.StartLength < 1 {
		return fmt.Errorf("start length must be positive, got %d", c.StartLength)
	}
	tail := c.Start.X - int32(c.StartLength-1)
	if tail < 0 || c.Start.X >= c.Width || c.Start.Y < 0 || c.Start.Y >= c.Height {
		return fmt.Errorf("starting snake at %v length %d does not fit %dx%d grid", c.Start, c.StartLength, c.Width, c.Height)
	}
	if c.ScoreIncrement <= 0 {
		return fmt.Errorf("score increment must be positive, got %d", c.ScoreIncrement)
	}
	for _, d := range Difficulties {
		s, ok := c.Difficulties[d]
		if !ok {
			return fmt.Errorf("missing settings for difficulty %q", d)
		}
		if s.Interval <= 0 {
			return fmt.Errorf("difficulty %q: interval must be positive", d)
		}
		if s.Obstacles < 0 {
			return fmt.Errorf("difficulty %q: negative obstacle count", d)
		}
	}
	return nil
}

// StartingSnake returns the canonical head-first starting body.
func (c Config) StartingSnake() []Point {
	body := make([]Point, c.StartLength)
	for i := range body {
		body[i] = Point{X: c.Start.X - int32(i), Y: c.Start.Y}
	}
	return body
}

// InExclusionZone reports whether p is too close to the start cell for an obstacle.
func (c Config) InExclusionZone(p Point) bool {
	return abs32(p.X-c.Start.X) < c.ExclusionRadius && abs32(p.Y-c.Start.Y) < c.ExclusionRadius
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
