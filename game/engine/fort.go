package engine

import "fmt"

// tierPoints maps undamaged cell count to points: the opponent's per-turn
// firing potential in that damage state.
var tierPoints = [FortSize + 1]int{0, 1, 2, 5, 20, 20}

// Fort is a set of board cells owned by one opponent
type Fort struct {
	id        string
	cells     []*Cell
	undamaged map[*Cell]bool
}

// NewFort creates an empty fort
func NewFort(id string) *Fort {
	return &Fort{
		id:        id,
		undamaged: make(map[*Cell]bool),
	}
}

// ID returns the fort identifier
func (f *Fort) ID() string {
	return f.id
}

// AddCell adds a board cell to the fort and tags it with the fort identifier
func (f *Fort) AddCell(cell *Cell) {
	if f.Contains(cell) {
		return
	}
	f.cells = append(f.cells, cell)
	if !cell.IsHit() {
		f.undamaged[cell] = true
	}
	cell.FortID = f.id
}

// Cells returns the member cells in placement order
func (f *Fort) Cells() []*Cell {
	out := make([]*Cell, len(f.cells))
	copy(out, f.cells)
	return out
}

// Coordinates returns the positions of the member cells
func (f *Fort) Coordinates() []Coordinate {
	out := make([]Coordinate, len(f.cells))
	for i, c := range f.cells {
		out[i] = Coordinate{Row: c.Row, Col: c.Col}
	}
	return out
}

// Contains reports whether cell is a member of the fort
func (f *Fort) Contains(cell *Cell) bool {
	for _, c := range f.cells {
		if c == cell {
			return true
		}
	}
	return false
}

// HandleHit records a hit on cell and returns the points for the resulting tier.
// Non-members score nothing; already hit members cause no further damage.
func (f *Fort) HandleHit(cell *Cell) int {
	if !f.Contains(cell) {
		return 0
	}
	if !f.undamaged[cell] {
		return f.PotentialPoints()
	}
	cell.MarkHit()
	delete(f.undamaged, cell)
	return f.PotentialPoints()
}

// UndamagedCellCount returns how many member cells are still intact
func (f *Fort) UndamagedCellCount() int {
	return len(f.undamaged)
}

// TotalCellCount returns the number of member cells
func (f *Fort) TotalCellCount() int {
	return len(f.cells)
}

// IsDestroyed reports whether every member cell has been hit
func (f *Fort) IsDestroyed() bool {
	return len(f.undamaged) == 0
}

// PotentialPoints returns the score for the current damage tier
func (f *Fort) PotentialPoints() int {
	return PointsForUndamaged(len(f.undamaged))
}

// PointsForUndamaged returns the tier score for an undamaged cell count
func PointsForUndamaged(undamaged int) int {
	if undamaged < 0 || undamaged >= len(tierPoints) {
		return 0
	}
	return tierPoints[undamaged]
}

func (f *Fort) String() string {
	return fmt.Sprintf("Fort(%s)[%d/%d]", f.id, f.UndamagedCellCount(), f.TotalCellCount())
}
