package engine

import (
	"errors"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		input   string
		row     int
		col     int
		wantErr bool
	}{
		{"A1", 0, 0, false},
		{"B5", 1, 4, false},
		{"b5", 1, 4, false},
		{"J10", 9, 9, false},
		{"Z99", 25, 98, false},
		{"A0", 0, -1, false},
		{"", 0, 0, true},
		{"A", 0, 0, true},
		{"A100", 0, 0, true},
		{"AB", 0, 0, true},
		{"15", 0, 0, true},
		{"#5", 0, 0, true},
		{"C 3", 0, 0, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			c, err := ParseCoordinate(test.input)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %+v", test.input, c)
				}
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", test.input, err)
			}
			if c.Row != test.row || c.Col != test.col {
				t.Errorf("Expected (%d,%d), got (%d,%d)", test.row, test.col, c.Row, c.Col)
			}
		})
	}
}

func TestBoard_Resolve(t *testing.T) {
	board := NewBoard()

	valid := []string{"A1", "a1", "J10", "E5", "j1"}
	for _, coord := range valid {
		cell, err := board.Resolve(coord)
		if err != nil {
			t.Errorf("Expected %q to resolve, got %v", coord, err)
			continue
		}
		if cell != board.CellAt(cell.Row, cell.Col) {
			t.Errorf("Expected %q to resolve to the board's own cell", coord)
		}
	}

	invalid := []string{"K1", "Z99", "A0", "A11", "J11", "", "A-1"}
	for _, coord := range invalid {
		if board.IsValidCoordinate(coord) {
			t.Errorf("Expected %q to be invalid", coord)
		}
	}
}

func TestBoard_Bounds(t *testing.T) {
	board := NewBoard()

	if board.Size() != BoardSize {
		t.Fatalf("Expected board size %d, got %d", BoardSize, board.Size())
	}
	if len(board.Cells()) != BoardSize*BoardSize {
		t.Errorf("Expected %d cells, got %d", BoardSize*BoardSize, len(board.Cells()))
	}
	if board.CellAt(-1, 0) != nil || board.CellAt(0, BoardSize) != nil {
		t.Error("Expected nil for out of bounds cells")
	}

	for _, cell := range board.Cells() {
		if cell.State != Unknown {
			t.Errorf("Expected new cell %v to be unknown", cell)
		}
		if cell.IsPartOfFort() {
			t.Errorf("Expected new cell %v to belong to no fort", cell)
		}
	}
}

func TestCell_StateNeverReverts(t *testing.T) {
	hit := &Cell{State: Unknown}
	hit.MarkHit()
	hit.MarkMiss()
	if hit.State != Hit {
		t.Errorf("Expected hit cell to stay HIT, got %s", hit.State)
	}

	miss := &Cell{State: Unknown}
	miss.MarkMiss()
	miss.MarkHit()
	if miss.State != Miss {
		t.Errorf("Expected missed cell to stay MISS, got %s", miss.State)
	}
	if !miss.HasBeenShot() || !hit.HasBeenShot() {
		t.Error("Expected both cells to report being shot")
	}
}

func TestFormatCoordinate(t *testing.T) {
	if got := FormatCoordinate(1, 4); got != "B5" {
		t.Errorf("Expected B5, got %s", got)
	}
	if got := FormatCoordinate(9, 9); got != "J10" {
		t.Errorf("Expected J10, got %s", got)
	}

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			c, err := ParseCoordinate(FormatCoordinate(row, col))
			if err != nil || c.Row != row || c.Col != col {
				t.Fatalf("Round trip failed for (%d,%d): %+v %v", row, col, c, err)
			}
		}
	}
}
