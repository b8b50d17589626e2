package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrShapeExhausted is returned when random-walk growth keeps dead-ending
var ErrShapeExhausted = errors.New("shape generation exhausted")

// ErrUnknownShape is returned for a canonical shape name that does not exist
var ErrUnknownShape = errors.New("unknown shape")

// Canonical shape names
const (
	ShapeRandom = "random"
	ShapeLine   = "line"
	ShapeL      = "l"
	ShapeT      = "t"
	ShapePlus   = "plus"
)

var neighborDeltas = [4]Offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// ShapeSource produces origin-anchored fort shapes
type ShapeSource interface {
	Generate(count int) ([]Offset, error)
}

// ShapeGenerator grows connected shapes by random walk
type ShapeGenerator struct {
	rng *rand.Rand
}

// NewShapeGenerator creates a generator drawing from rng
func NewShapeGenerator(rng *rand.Rand) *ShapeGenerator {
	return &ShapeGenerator{rng: rng}
}

// Generate returns count distinct 4-connected offsets starting at (0,0).
// Each step picks uniformly among the free cells adjacent to the shape so far.
// A dead-ended attempt is discarded and growth restarts from the origin.
func (g *ShapeGenerator) Generate(count int) ([]Offset, error) {
	if count <= 0 {
		return nil, fmt.Errorf("shape size must be positive, got %d", count)
	}

	for attempt := 0; attempt < MaxShapeAttempts; attempt++ {
		if shape, ok := g.grow(count); ok {
			return shape, nil
		}
	}
	return nil, fmt.Errorf("%w: %d attempts for %d cells", ErrShapeExhausted, MaxShapeAttempts, count)
}

func (g *ShapeGenerator) grow(count int) ([]Offset, bool) {
	shape := make([]Offset, 0, count)
	placed := make(map[Offset]bool, count)

	shape = append(shape, Offset{0, 0})
	placed[Offset{0, 0}] = true

	for len(shape) < count {
		candidates := frontier(shape, placed)
		if len(candidates) == 0 {
			return nil, false
		}
		next := candidates[g.rng.IntN(len(candidates))]
		shape = append(shape, next)
		placed[next] = true
	}
	return shape, true
}

// frontier lists the unplaced cells 4-adjacent to the shape, without duplicates,
// in a stable order so a seeded generator is reproducible.
func frontier(shape []Offset, placed map[Offset]bool) []Offset {
	seen := make(map[Offset]bool)
	var candidates []Offset
	for _, cell := range shape {
		for _, d := range neighborDeltas {
			n := Offset{cell.Row + d.Row, cell.Col + d.Col}
			if placed[n] || seen[n] {
				continue
			}
			seen[n] = true
			candidates = append(candidates, n)
		}
	}
	return candidates
}

// FixedShape always returns the same canonical shape
type FixedShape struct {
	name    string
	offsets []Offset
}

// Generate returns a copy of the canonical offsets. count must match the shape size.
func (f *FixedShape) Generate(count int) ([]Offset, error) {
	if count != len(f.offsets) {
		return nil, fmt.Errorf("shape %q has %d cells, %d requested", f.name, len(f.offsets), count)
	}
	out := make([]Offset, len(f.offsets))
	copy(out, f.offsets)
	return out, nil
}

// Name returns the canonical shape name
func (f *FixedShape) Name() string {
	return f.name
}

var canonicalShapes = map[string][]Offset{
	ShapeLine: {{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}},
	ShapeL:    {{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}},
	ShapeT:    {{0, 0}, {0, 1}, {0, 2}, {1, 1}, {2, 1}},
	ShapePlus: {{0, 1}, {1, 0}, {1, 1}, {1, 2}, {2, 1}},
}

// CanonicalShape returns the named deterministic shape
func CanonicalShape(name string) (*FixedShape, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	offsets, ok := canonicalShapes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return &FixedShape{name: key, offsets: offsets}, nil
}

// CanonicalShapeNames lists the deterministic shapes
func CanonicalShapeNames() []string {
	return []string{ShapeLine, ShapeL, ShapeT, ShapePlus}
}
