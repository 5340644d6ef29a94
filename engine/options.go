package engine

import (
	"log/slog"
	"time"
)

type Option func(*Engine)

// WithStore sets where high scores are read and written. Without it the
// engine keeps them in memory.
func WithStore(s ScoreStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithRecorder receives a summary of every finished run.
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithFrameHandler is called with a fresh snapshot after start, difficulty
// changes, every tick and game over. It runs outside the engine lock on the
// goroutine that caused the change.
func WithFrameHandler(fn FrameHandler) Option {
	return func(e *Engine) { e.onFrame = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSeed makes food and obstacle placement reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithManualTicks disables the internal schedule; the caller drives Tick.
func WithManualTicks() Option {
	return func(e *Engine) { e.manual = true }
}

func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}
