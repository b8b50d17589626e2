package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrPlacementExhausted is returned when a fort cannot be seated within MaxPlacementAttempts
var ErrPlacementExhausted = errors.New("fort placement exhausted")

// Placer seats forts on a board
type Placer struct {
	shapes ShapeSource
	rng    *rand.Rand
}

// NewPlacer creates a placer that draws shapes from shapes and anchors from rng
func NewPlacer(shapes ShapeSource, rng *rand.Rand) *Placer {
	return &Placer{shapes: shapes, rng: rng}
}

// PlaceForts places count forts with identifiers A, B, C, ... Each fort gets up
// to MaxPlacementAttempts tries; if any fort cannot be seated the whole call
// fails and the board is left without fort membership.
func (p *Placer) PlaceForts(board *Board, count int) ([]*Fort, error) {
	placed := make([]*Fort, 0, count)
	for i := 0; i < count; i++ {
		id := FortID(i)
		cells, ok := p.seat(board, placed)
		if !ok {
			clearMembership(placed)
			return nil, fmt.Errorf("%w: unable to place fort %s after %d attempts",
				ErrPlacementExhausted, id, MaxPlacementAttempts)
		}
		fort := NewFort(id)
		for _, cell := range cells {
			fort.AddCell(cell)
		}
		placed = append(placed, fort)
	}
	return placed, nil
}

// seat finds board cells for one fort that pass validation against placed
func (p *Placer) seat(board *Board, placed []*Fort) ([]*Cell, bool) {
	for attempt := 0; attempt < MaxPlacementAttempts; attempt++ {
		shape, err := p.shapes.Generate(FortSize)
		if err != nil {
			continue
		}

		startRow := p.rng.IntN(board.Size())
		startCol := p.rng.IntN(board.Size())

		candidate, ok := translate(shape, startRow, startCol, board)
		if !ok {
			continue
		}
		if !IsValidPlacement(candidate, placed, board.Size()) {
			continue
		}

		cells := make([]*Cell, len(candidate))
		for i, c := range candidate {
			cells[i] = board.CellAt(c.Row, c.Col)
		}
		return cells, true
	}
	return nil, false
}

// translate anchors shape at (startRow, startCol); ok is false if any cell leaves the board
func translate(shape []Offset, startRow, startCol int, board *Board) ([]Coordinate, bool) {
	out := make([]Coordinate, len(shape))
	for i, o := range shape {
		row, col := o.Row+startRow, o.Col+startCol
		if !board.InBounds(row, col) {
			return nil, false
		}
		out[i] = Coordinate{Row: row, Col: col}
	}
	return out, true
}

func clearMembership(forts []*Fort) {
	for _, fort := range forts {
		for _, cell := range fort.cells {
			cell.FortID = ""
		}
	}
}

// FortID returns the letter identifier for the i-th fort (0 -> "A")
func FortID(i int) string {
	return string(rune('A' + i))
}
