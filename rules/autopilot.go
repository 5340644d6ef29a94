package rules

import "github.com/brensch/snekclassic/game"

// Autopilot picks a move for demo play: among the legal moves it prefers the
// one with the most room behind it, then the one closest to the food, then
// keeping the current heading. It returns false when every move is fatal.
func Autopilot(state *game.State) (game.Direction, bool) {
	moves := LegalMoves(state)
	if len(moves) == 0 {
		return state.Direction, false
	}

	need := len(state.Snake) + 1
	best := moves[0]
	bestRoom, bestDist := -1, int32(1<<30)
	for _, d := range moves {
		next := Advance(state.Head(), d)
		room := reachable(state, next, need)
		dist := int32(1 << 30)
		if state.HasFood {
			dist = manhattan(next, state.Food)
		}

		var better bool
		switch {
		case room != bestRoom:
			better = room > bestRoom
		case dist != bestDist:
			better = dist < bestDist
		default:
			better = d == state.Direction
		}
		if better {
			best, bestRoom, bestDist = d, room, dist
		}
	}
	return best, true
}

// reachable counts free cells connected to start, stopping once limit is hit.
func reachable(state *game.State, start game.Point, limit int) int {
	blocked := make(map[game.Point]bool, len(state.Snake)+len(state.Obstacles))
	for _, p := range state.Snake {
		blocked[p] = true
	}
	for _, p := range state.Obstacles {
		blocked[p] = true
	}

	seen := map[game.Point]bool{start: true}
	queue := []game.Point{start}
	for len(queue) > 0 && len(seen) < limit {
		p := queue[0]
		queue = queue[1:]
		for _, d := range game.Directions {
			n := Advance(p, d)
			if seen[n] || blocked[n] || !InBounds(state, n) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return min(len(seen), limit)
}

func manhattan(a, b game.Point) int32 {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
