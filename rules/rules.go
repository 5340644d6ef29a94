// Package rules implements the classic single-snake transition function.
//
// Every function here is pure: NextState clones its input, so callers can
// keep the previous frame around for rendering or comparison.
package rules

import (
	"math/rand"

	"github.com/brensch/snekclassic/game"
)

// Event reports what happened during one step.
type Event struct {
	Ate       bool
	Collision game.Cause
}

// Advance returns p moved one cell in direction d.
func Advance(p game.Point, d game.Direction) game.Point {
	dx, dy := d.Delta()
	return game.Point{X: p.X + dx, Y: p.Y + dy}
}

func InBounds(state *game.State, p game.Point) bool {
	return p.X >= 0 && p.X < state.Width && p.Y >= 0 && p.Y < state.Height
}

// CheckCollision tests the head of state.Snake against the walls, the rest of
// the body and the obstacles. The head must already have been prepended.
func CheckCollision(state *game.State) game.Cause {
	head := state.Snake[0]

	if !InBounds(state, head) {
		return game.CauseWall
	}

	// Skip the head itself; the old tail is still attached at this point.
	for _, p := range state.Snake[1:] {
		if p == head {
			return game.CauseSelf
		}
	}

	for _, o := range state.Obstacles {
		if o == head {
			return game.CauseObstacle
		}
	}

	return game.CauseNone
}

// NextState advances the snake one cell in state.Direction.
//
// On collision the returned state still carries the prepended head and the
// event names the cause; callers treat it as terminal. When the head lands on
// food the score grows by cfg.ScoreIncrement, the tail is kept and new food is
// spawned from rng.
func NextState(state *game.State, rng *rand.Rand, cfg game.Config) (*game.State, Event) {
	newState := state.Clone()
	newState.Turn++

	newHead := Advance(state.Head(), state.Direction)

	newBody := make([]game.Point, 0, len(state.Snake)+1)
	newBody = append(newBody, newHead)
	newBody = append(newBody, state.Snake...)
	newState.Snake = newBody

	if cause := CheckCollision(newState); cause != game.CauseNone {
		return newState, Event{Collision: cause}
	}

	if newState.HasFood && newHead == newState.Food {
		newState.Score += cfg.ScoreIncrement
		game.SpawnFood(newState, rng)
		return newState, Event{Ate: true}
	}

	// Remove tail
	newState.Snake = newState.Snake[:len(newState.Snake)-1]
	return newState, Event{}
}

// LegalMoves returns the directions the snake can take next turn without
// dying. The tail counts as occupied because the collision check runs before
// it is removed.
func LegalMoves(state *game.State) []game.Direction {
	if len(state.Snake) == 0 {
		return nil
	}

	head := state.Head()
	moves := make([]game.Direction, 0, 4)
	for _, d := range game.Directions {
		if len(state.Snake) > 1 && d == state.Direction.Opposite() {
			continue
		}
		if isSafe(state, Advance(head, d)) {
			moves = append(moves, d)
		}
	}
	return moves
}

func isSafe(state *game.State, p game.Point) bool {
	if !InBounds(state, p) {
		return false
	}
	for _, bp := range state.Snake {
		if bp == p {
			return false
		}
	}
	for _, o := range state.Obstacles {
		if o == p {
			return false
		}
	}
	return true
}
