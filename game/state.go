// Package game defines the core state types for classic Snake.
//
// A single snake moves on a fixed grid with one piece of food and a set of
// static obstacles. The state is small and cheap to clone so the rules can
// produce a fresh value on every step.
package game

import "fmt"

// Point is a board coordinate.
// Coordinates follow screen conventions: (0,0) is top-left and Y grows downward.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type Direction int8

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

// Directions lists every direction in a stable order.
var Directions = []Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Opposite returns the direction that would reverse d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Delta returns the one-cell offset of a move in direction d.
func (d Direction) Delta() (dx, dy int32) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 1, 0
	}
}

// ParseDirection accepts "up", "down", "left" and "right".
func ParseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if s == name {
			return Direction(i), true
		}
	}
	return Up, false
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	parsed, ok := ParseDirection(string(b))
	if !ok {
		return fmt.Errorf("unknown direction %q", string(b))
	}
	*d = parsed
	return nil
}

// State is everything the rules need to advance one step.
type State struct {
	Width     int32
	Height    int32
	Snake     []Point
	Direction Direction
	Food      Point
	HasFood   bool
	Obstacles []Point
	Score     int
	Turn      int32
}

func (s *State) Head() Point {
	return s.Snake[0]
}

// Occupied reports whether p is covered by the snake or an obstacle.
func (s *State) Occupied(p Point) bool {
	for _, b := range s.Snake {
		if b == p {
			return true
		}
	}
	for _, o := range s.Obstacles {
		if o == p {
			return true
		}
	}
	return false
}

// Clone performs a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := *s
	if len(s.Snake) > 0 {
		out.Snake = make([]Point, len(s.Snake))
		copy(out.Snake, s.Snake)
	}
	if len(s.Obstacles) > 0 {
		out.Obstacles = make([]Point, len(s.Obstacles))
		copy(out.Obstacles, s.Obstacles)
	}
	return &out
}
