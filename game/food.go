// food.go implements food and obstacle placement.

package game

import (
	"math/rand"
)

// attemptsPerCell bounds rejection sampling before falling back to a scan of
// free cells. Real boards never get close; a packed board would otherwise spin.
const attemptsPerCell = 64

// SpawnFood places the food on a uniformly random cell that is neither snake
// nor obstacle. It returns false, leaving HasFood unset, when no cell is free.
func SpawnFood(state *State, rng *rand.Rand) bool {
	occupied := occupancy(state)
	p, ok := samplePoint(state.Width, state.Height, rng, func(p Point) bool {
		return !occupied[p]
	})
	state.Food = p
	state.HasFood = ok
	return ok
}

// PlaceObstacles replaces state.Obstacles with n cells that avoid the snake,
// each other and the exclusion zone around cfg.Start. Fewer than n are placed
// only when the board has no room left; the count placed is returned.
func PlaceObstacles(state *State, rng *rand.Rand, cfg Config, n int) int {
	state.Obstacles = make([]Point, 0, n)
	occupied := occupancy(state)

	for len(state.Obstacles) < n {
		p, ok := samplePoint(state.Width, state.Height, rng, func(p Point) bool {
			return !occupied[p] && !cfg.InExclusionZone(p)
		})
		if !ok {
			break
		}
		state.Obstacles = append(state.Obstacles, p)
		occupied[p] = true
	}
	return len(state.Obstacles)
}

func occupancy(state *State) map[Point]bool {
	occupied := make(map[Point]bool, len(state.Snake)+len(state.Obstacles))
	for _, p := range state.Snake {
		occupied[p] = true
	}
	for _, p := range state.Obstacles {
		occupied[p] = true
	}
	return occupied
}

// samplePoint draws uniform cells until valid accepts one. After the attempt
// budget it picks uniformly among the remaining valid cells instead.
func samplePoint(width, height int32, rng *rand.Rand, valid func(Point) bool) (Point, bool) {
	if width <= 0 || height <= 0 {
		return Point{}, false
	}

	budget := attemptsPerCell * int(width) * int(height)
	for i := 0; i < budget; i++ {
		p := Point{X: rng.Int31n(width), Y: rng.Int31n(height)}
		if valid(p) {
			return p, true
		}
	}

	freeSpots := make([]Point, 0, 16)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			p := Point{X: x, Y: y}
			if valid(p) {
				freeSpots = append(freeSpots, p)
			}
		}
	}
	if len(freeSpots) == 0 {
		return Point{}, false
	}
	return freeSpots[rng.Intn(len(freeSpots))], true
}
