package game

import (
	"encoding/json"
	"time"
)

// Outcome describes what a renderer should tell the player while idle.
type Outcome string

const (
	OutcomeIdle         Outcome = "idle"
	OutcomePlaying      Outcome = "playing"
	OutcomeGameOver     Outcome = "game_over"
	OutcomeNewHighScore Outcome = "new_high_score"
)

// Cause names the collision that ended a run.
type Cause string

const (
	CauseNone     Cause = ""
	CauseWall     Cause = "wall"
	CauseSelf     Cause = "self"
	CauseObstacle Cause = "obstacle"
)

// Snapshot is a read-only frame handed to renderers. It shares no memory
// with the engine.
type Snapshot struct {
	RunID      string        `json:"run_id,omitempty"`
	Width      int32         `json:"width"`
	Height     int32         `json:"height"`
	CellSize   int32         `json:"cell_size"`
	Snake      []Point       `json:"snake"`
	Direction  Direction     `json:"direction"`
	Food       *Point        `json:"food,omitempty"`
	Obstacles  []Point       `json:"obstacles"`
	Score      int           `json:"score"`
	HighScore  int           `json:"high_score"`
	Difficulty Difficulty    `json:"difficulty"`
	Running    bool          `json:"running"`
	Turn       int32         `json:"turn"`
	Interval   time.Duration `json:"-"`
	Outcome    Outcome       `json:"outcome"`
	Cause      Cause         `json:"cause,omitempty"`
	Message    string        `json:"message"`
}

// MarshalJSON adds the interval in milliseconds, which is what browsers expect.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		IntervalMs int64 `json:"interval_ms"`
	}{plain(s), s.Interval.Milliseconds()})
}

// State rebuilds a rules state from the frame, for clients that want to
// reason about the board (the autopilot does).
func (s Snapshot) State() *State {
	st := &State{
		Width:     s.Width,
		Height:    s.Height,
		Direction: s.Direction,
		Score:     s.Score,
		Turn:      s.Turn,
	}
	st.Snake = append([]Point(nil), s.Snake...)
	st.Obstacles = append([]Point(nil), s.Obstacles...)
	if s.Food != nil {
		st.Food = *s.Food
		st.HasFood = true
	}
	return st
}

// RunSummary is the record of one finished run.
type RunSummary struct {
	RunID          string
	Difficulty     Difficulty
	Score          int
	Length         int
	Turns          int32
	Outcome        Outcome
	Cause          Cause
	Seed           int64
	BaseInterval   time.Duration
	FinalInterval  time.Duration
	StartedAt      time.Time
	EndedAt        time.Time
	Obstacles      []Point
	Moves          []Direction
	PreviousRecord int
}
