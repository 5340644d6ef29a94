// Package engine runs one classic Snake session: it owns the board, applies
// player input, advances the simulation on a timer and reports finished runs.
//
// All state lives on the Engine value. Mutators and ticks serialize on a
// single mutex, so input may arrive from any goroutine while the schedule
// goroutine advances the board.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/logging"
	"github.com/brensch/snekclassic/rules"
	"github.com/brensch/snekclassic/scores"
	"github.com/google/uuid"
)

var ErrInvalidConfig = errors.New("invalid engine config")

// ScoreStore loads and saves the best score per difficulty.
type ScoreStore interface {
	Load() (game.HighScores, error)
	Save(game.HighScores) error
}

// RunRecorder receives every finished run. Record must not block for long;
// it is called with the engine locked.
type RunRecorder interface {
	Record(game.RunSummary)
}

// FrameHandler receives a snapshot after every state change.
type FrameHandler func(game.Snapshot)

// TickResult describes one step.
type TickResult struct {
	Running         bool // false if the engine was idle or the run just ended
	Ate             bool
	Collision       game.Cause
	Interval        time.Duration
	IntervalChanged bool
}

type Engine struct {
	mu sync.Mutex

	cfg      game.Config
	rng      *rand.Rand
	seed     int64
	store    ScoreStore
	recorder RunRecorder
	onFrame  FrameHandler
	log      *slog.Logger
	manual   bool
	now      func() time.Time

	state      *game.State
	difficulty game.Difficulty
	highScores game.HighScores
	running    bool
	interval   time.Duration
	outcome    game.Outcome
	cause      game.Cause
	message    string

	runID     string
	runSeed   int64
	startedAt time.Time
	moves     []game.Direction

	// gen identifies the live schedule; bumping it retires the old goroutine.
	gen  uint64
	stop chan struct{}
}

// New builds an idle engine. High scores are loaded from the store here, on
// difficulty select and again at game over; an unreadable store logs a
// warning and keeps the last known scores.
func New(cfg game.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:        cfg,
		seed:       time.Now().UnixNano(),
		log:        logging.Discard(),
		now:        time.Now,
		difficulty: game.Normal,
		outcome:    game.OutcomeIdle,
		message:    idleMessage,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = scores.NewMemory(nil)
	}
	e.rng = rand.New(rand.NewSource(e.seed))

	e.highScores = e.loadScores()
	e.interval = cfg.Difficulties[e.difficulty].Interval
	e.state = &game.State{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Snake:     cfg.StartingSnake(),
		Direction: game.Right,
	}
	return e, nil
}

const idleMessage = "Press Start to Play"

// Start begins a new run. It is a no-op while a run is in progress.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}

	settings := e.cfg.Difficulties[e.difficulty]

	// Each run gets its own seed so a recorded run can be replayed.
	e.runSeed = e.rng.Int63()
	runRng := rand.New(rand.NewSource(e.runSeed))

	state := &game.State{
		Width:     e.cfg.Width,
		Height:    e.cfg.Height,
		Snake:     e.cfg.StartingSnake(),
		Direction: game.Right,
	}
	placed := game.PlaceObstacles(state, runRng, e.cfg, settings.Obstacles)
	if placed < settings.Obstacles {
		e.log.Warn("board too small for obstacles", "want", settings.Obstacles, "placed", placed)
	}
	game.SpawnFood(state, runRng)

	e.rng = runRng
	e.state = state
	e.interval = settings.Interval
	e.running = true
	e.outcome = game.OutcomePlaying
	e.cause = game.CauseNone
	e.message = ""
	e.runID = uuid.NewString()
	e.startedAt = e.now()
	e.moves = e.moves[:0]

	e.gen++
	if !e.manual {
		e.stop = make(chan struct{})
		go e.runSchedule(e.gen, e.interval, e.stop)
	}

	e.log.Info("run started",
		"run", e.runID,
		"difficulty", e.difficulty,
		"interval", e.interval,
		"obstacles", len(state.Obstacles),
	)
	frame, handler := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
}

// SetDifficulty selects the difficulty for the next run. It is rejected while
// a run is in progress or for an unknown difficulty. On success the high
// scores are re-read from the store and the best for d is returned.
func (e *Engine) SetDifficulty(d game.Difficulty) (int, bool) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.log.Debug("difficulty change ignored while running", "difficulty", d)
		return 0, false
	}
	settings, ok := e.cfg.Difficulties[d]
	if !ok {
		e.mu.Unlock()
		e.log.Debug("unknown difficulty ignored", "difficulty", d)
		return 0, false
	}

	e.difficulty = d
	e.interval = settings.Interval
	e.highScores = e.loadScores()
	best := e.highScores[d]

	frame, handler := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
	return best, true
}

// ChangeDirection requests a new heading for the next tick. Only a direct
// reversal of the stored direction is rejected; later requests overwrite
// earlier ones until the tick consumes them.
func (e *Engine) ChangeDirection(d game.Direction) bool {
	if d < game.Up || d > game.Right {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if d == e.state.Direction.Opposite() {
		return false
	}
	e.state.Direction = d
	return true
}

// Tick advances the board by one step when the engine was built with
// WithManualTicks. Otherwise the schedule drives the board and Tick does
// nothing.
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	if !e.manual {
		// The schedule owns ticking; an extra tick would shorten the interval.
		interval := e.interval
		e.mu.Unlock()
		return TickResult{Interval: interval}
	}
	res := e.tickLocked()
	frame, handler := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()

	if handler != nil && (res.Running || res.Collision != game.CauseNone) {
		handler(frame)
	}
	return res
}

// tickGeneration is the schedule's entry point. A schedule from an earlier
// run must not advance the current one.
func (e *Engine) tickGeneration(gen uint64) (TickResult, bool) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return TickResult{}, false
	}
	res := e.tickLocked()
	frame, handler := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
	return res, true
}

func (e *Engine) tickLocked() TickResult {
	if !e.running {
		return TickResult{Interval: e.interval}
	}

	e.moves = append(e.moves, e.state.Direction)
	next, ev := rules.NextState(e.state, e.rng, e.cfg)

	if ev.Collision != game.CauseNone {
		// Keep the last legal board on screen; only the turn counter moves.
		e.state.Turn = next.Turn
		e.gameOverLocked(ev.Collision)
		return TickResult{Collision: ev.Collision, Interval: e.interval}
	}

	e.state = next
	res := TickResult{Running: true, Ate: ev.Ate, Interval: e.interval}
	if !ev.Ate {
		return res
	}

	if !next.HasFood {
		e.log.Warn("no free cell left for food", "run", e.runID, "length", len(next.Snake))
	}

	if e.cfg.SpeedupEvery > 0 && next.Score%e.cfg.SpeedupEvery == 0 && e.interval > e.cfg.MinInterval {
		e.interval -= e.cfg.SpeedupStep
		res.Interval = e.interval
		res.IntervalChanged = true
		e.log.Debug("speed up", "run", e.runID, "score", next.Score, "interval", e.interval)
	}
	return res
}

func (e *Engine) gameOverLocked(cause game.Cause) {
	e.running = false
	e.cause = cause
	e.gen++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}

	// Other sessions may share the store, so compare against what it holds now.
	e.highScores = e.loadScores()
	score := e.state.Score
	previous := e.highScores[e.difficulty]
	if score > previous {
		e.highScores[e.difficulty] = score
		if err := e.store.Save(e.highScores.Clone()); err != nil {
			e.log.Warn("failed to save high scores", "err", err)
		}
		e.outcome = game.OutcomeNewHighScore
		e.message = fmt.Sprintf("New High Score: %d! Press Start to Play Again", score)
	} else {
		e.outcome = game.OutcomeGameOver
		e.message = fmt.Sprintf("Game Over! Score: %d. Press Start to Play Again", score)
	}

	endedAt := e.now()
	e.log.Info("run ended",
		"run", e.runID,
		"difficulty", e.difficulty,
		"score", score,
		"length", len(e.state.Snake),
		"turns", e.state.Turn,
		"cause", cause,
		"outcome", e.outcome,
		"duration", endedAt.Sub(e.startedAt),
	)

	if e.recorder != nil {
		e.recorder.Record(game.RunSummary{
			RunID:          e.runID,
			Difficulty:     e.difficulty,
			Score:          score,
			Length:         len(e.state.Snake),
			Turns:          e.state.Turn,
			Outcome:        e.outcome,
			Cause:          cause,
			Seed:           e.runSeed,
			BaseInterval:   e.cfg.Difficulties[e.difficulty].Interval,
			FinalInterval:  e.interval,
			StartedAt:      e.startedAt,
			EndedAt:        endedAt,
			Obstacles:      append([]game.Point(nil), e.state.Obstacles...),
			Moves:          append([]game.Direction(nil), e.moves...),
			PreviousRecord: previous,
		})
	}
}

// Close cancels any running schedule and leaves the engine idle. The run in
// progress is abandoned without touching high scores.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	if e.running {
		e.running = false
		e.outcome = game.OutcomeIdle
		e.message = idleMessage
	}
}

func (e *Engine) Snapshot() game.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns a copy of the board.
func (e *Engine) State() *game.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// HighScores returns a copy of the scores the engine last read or wrote.
func (e *Engine) HighScores() game.HighScores {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highScores.Clone()
}

func (e *Engine) Config() game.Config { return e.cfg }

func (e *Engine) snapshotLocked() game.Snapshot {
	s := e.state
	snap := game.Snapshot{
		RunID:      e.runID,
		Width:      s.Width,
		Height:     s.Height,
		CellSize:   e.cfg.CellSize,
		Snake:      append([]game.Point(nil), s.Snake...),
		Direction:  s.Direction,
		Obstacles:  append([]game.Point(nil), s.Obstacles...),
		Score:      s.Score,
		HighScore:  e.highScores[e.difficulty],
		Difficulty: e.difficulty,
		Running:    e.running,
		Turn:       s.Turn,
		Interval:   e.interval,
		Outcome:    e.outcome,
		Cause:      e.cause,
		Message:    e.message,
	}
	if s.HasFood {
		food := s.Food
		snap.Food = &food
	}
	return snap
}

func (e *Engine) loadScores() game.HighScores {
	hs, err := e.store.Load()
	if err != nil {
		e.log.Warn("failed to load high scores", "err", err)
		if e.highScores != nil {
			return e.highScores
		}
		return game.NewHighScores()
	}
	return hs.Normalize()
}
