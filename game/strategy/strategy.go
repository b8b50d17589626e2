// Package strategy provides automated shooters that pick targets on a water
// fight board. They drive the offline simulator and the autoplay client.
package strategy

import (
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
)

// Known strategy names
const (
	Random = "random"
	Hunt   = "hunt"
)

// Names lists every strategy New understands
func Names() []string {
	return []string{Random, Hunt}
}

// Shooter picks the next target and learns from the result
type Shooter interface {
	Next() engine.Coordinate
	Observe(target engine.Coordinate, hit bool)
}

// New returns the shooter registered under name
func New(name string, rng *rand.Rand) (Shooter, error) {
	switch name {
	case Random:
		return NewRandom(rng), nil
	case Hunt:
		return NewHunt(rng), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Validate reports whether name is a known strategy
func Validate(name string) error {
	for _, n := range Names() {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", name)
}

func shuffledCells(rng *rand.Rand) []engine.Coordinate {
	cells := make([]engine.Coordinate, 0, engine.BoardSize*engine.BoardSize)
	for _, i := range rng.Perm(engine.BoardSize * engine.BoardSize) {
		cells = append(cells, engine.Coordinate{Row: i / engine.BoardSize, Col: i % engine.BoardSize})
	}
	return cells
}

// RandomShooter fires at every cell once, in random order
type RandomShooter struct {
	order []engine.Coordinate
	shot  map[engine.Coordinate]bool
}

func NewRandom(rng *rand.Rand) *RandomShooter {
	return &RandomShooter{order: shuffledCells(rng), shot: make(map[engine.Coordinate]bool)}
}

func (s *RandomShooter) Next() engine.Coordinate {
	for len(s.order) > 0 {
		next := s.order[0]
		s.order = s.order[1:]
		if !s.shot[next] {
			return next
		}
	}
	return engine.Coordinate{}
}

func (s *RandomShooter) Observe(target engine.Coordinate, _ bool) {
	s.shot[target] = true
}

// HuntShooter searches on a checkerboard and probes the neighbours of
// every hit before resuming the search.
type HuntShooter struct {
	search  []engine.Coordinate
	targets []engine.Coordinate
	shot    map[engine.Coordinate]bool
}

func NewHunt(rng *rand.Rand) *HuntShooter {
	var even, odd []engine.Coordinate
	for _, c := range shuffledCells(rng) {
		if (c.Row+c.Col)%2 == 0 {
			even = append(even, c)
		} else {
			odd = append(odd, c)
		}
	}
	return &HuntShooter{
		search: append(even, odd...),
		shot:   make(map[engine.Coordinate]bool),
	}
}

func (s *HuntShooter) Next() engine.Coordinate {
	for len(s.targets) > 0 {
		next := s.targets[len(s.targets)-1]
		s.targets = s.targets[:len(s.targets)-1]
		if !s.shot[next] {
			return next
		}
	}
	for len(s.search) > 0 {
		next := s.search[0]
		s.search = s.search[1:]
		if !s.shot[next] {
			return next
		}
	}
	// Every cell has been shot; the game is already over
	return engine.Coordinate{}
}

func (s *HuntShooter) Observe(target engine.Coordinate, hit bool) {
	s.shot[target] = true
	if !hit {
		return
	}
	for _, d := range []engine.Offset{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}} {
		n := engine.Coordinate{Row: target.Row + d.Row, Col: target.Col + d.Col}
		if n.Row >= 0 && n.Row < engine.BoardSize && n.Col >= 0 && n.Col < engine.BoardSize && !s.shot[n] {
			s.targets = append(s.targets, n)
		}
	}
}
