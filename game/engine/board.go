package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidCoordinate is returned when a coordinate string cannot address a board cell
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Cell is a single board position. Row and Col never change after creation.
type Cell struct {
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	State  CellState `json:"state"`
	FortID string    `json:"fortId,omitempty"` // empty if not part of a fort
}

// IsPartOfFort reports whether the cell belongs to a fort
func (c *Cell) IsPartOfFort() bool {
	return c.FortID != ""
}

// HasBeenShot reports whether the player already shot this cell
func (c *Cell) HasBeenShot() bool {
	return c.State == Hit || c.State == Miss
}

// IsHit reports whether the cell was hit
func (c *Cell) IsHit() bool {
	return c.State == Hit
}

// MarkHit moves an unshot cell to Hit. Shot cells keep their state.
func (c *Cell) MarkHit() {
	if c.State == Unknown {
		c.State = Hit
	}
}

// MarkMiss moves an unshot cell to Miss. Shot cells keep their state.
func (c *Cell) MarkMiss() {
	if c.State == Unknown {
		c.State = Miss
	}
}

func (c *Cell) String() string {
	return fmt.Sprintf("Cell(%d,%d)[%s]", c.Row, c.Col, c.State)
}

// Board is the fixed square grid. It owns every Cell; forts only reference them.
type Board struct {
	size  int
	cells [][]*Cell
}

// NewBoard creates an empty board of BoardSize x BoardSize unknown cells
func NewBoard() *Board {
	return newBoardOfSize(BoardSize)
}

func newBoardOfSize(size int) *Board {
	cells := make([][]*Cell, size)
	for row := 0; row < size; row++ {
		cells[row] = make([]*Cell, size)
		for col := 0; col < size; col++ {
			cells[row][col] = &Cell{Row: row, Col: col, State: Unknown}
		}
	}
	return &Board{size: size, cells: cells}
}

// Size returns the board edge length
func (b *Board) Size() int {
	return b.size
}

// InBounds reports whether row and col address a cell on the board
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// CellAt returns the cell at row, col or nil when out of bounds
func (b *Board) CellAt(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return b.cells[row][col]
}

// Resolve parses a coordinate string and returns the addressed cell
func (b *Board) Resolve(coordinate string) (*Cell, error) {
	c, err := ParseCoordinate(coordinate)
	if err != nil {
		return nil, err
	}
	if !b.InBounds(c.Row, c.Col) {
		return nil, fmt.Errorf("%w: %q is off the board", ErrInvalidCoordinate, coordinate)
	}
	return b.cells[c.Row][c.Col], nil
}

// IsValidCoordinate reports whether coordinate addresses a cell on the board
func (b *Board) IsValidCoordinate(coordinate string) bool {
	_, err := b.Resolve(coordinate)
	return err == nil
}

// Cells returns every cell in row-major order
func (b *Board) Cells() []*Cell {
	all := make([]*Cell, 0, b.size*b.size)
	for _, row := range b.cells {
		all = append(all, row...)
	}
	return all
}

// ParseCoordinate parses "B5" style coordinates: one letter selecting the row
// (case-insensitive, A=0) followed by a 1 or 2 digit column number (1-based).
// Bounds against a concrete board are checked by Board.Resolve.
func ParseCoordinate(coordinate string) (Coordinate, error) {
	if len(coordinate) < 2 || len(coordinate) > 3 {
		return Coordinate{}, fmt.Errorf("%w: %q must be 2 or 3 characters", ErrInvalidCoordinate, coordinate)
	}

	letter := unicode.ToUpper(rune(coordinate[0]))
	if letter < 'A' || letter > 'Z' {
		return Coordinate{}, fmt.Errorf("%w: %q must start with a letter", ErrInvalidCoordinate, coordinate)
	}

	number, err := strconv.Atoi(coordinate[1:])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q has no column number", ErrInvalidCoordinate, coordinate)
	}

	return Coordinate{Row: int(letter - 'A'), Col: number - 1}, nil
}

// FormatCoordinate renders row and col as a "LetterNumber" coordinate
func FormatCoordinate(row, col int) string {
	var sb strings.Builder
	sb.WriteByte(byte('A' + row))
	sb.WriteString(strconv.Itoa(col + 1))
	return sb.String()
}
