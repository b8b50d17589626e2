package engine

import "testing"

func TestOpponent_FireWaterGun(t *testing.T) {
	board := NewBoard()
	fort := newLineFort(t, board, 0)
	opponent := NewOpponent(OpponentID(0), fort)

	if got := opponent.FireWaterGun(); got != 20 {
		t.Errorf("Expected intact opponent to fire 20, got %d", got)
	}
	// Firing never damages the fort
	if fort.UndamagedCellCount() != FortSize {
		t.Errorf("Expected fort untouched by firing, got %d undamaged", fort.UndamagedCellCount())
	}

	opponent.HandleFortHit(board.CellAt(0, 0))
	opponent.HandleFortHit(board.CellAt(0, 1))
	if got := opponent.FireWaterGun(); got != 5 {
		t.Errorf("Expected 3 undamaged cells to fire 5, got %d", got)
	}
}

func TestOpponent_Destroyed(t *testing.T) {
	board := NewBoard()
	fort := newLineFort(t, board, 0)
	opponent := NewOpponent("#1", fort)

	for col := 0; col < FortSize; col++ {
		if opponent.IsDestroyed() {
			t.Fatalf("Expected opponent alive before hit %d", col+1)
		}
		opponent.HandleFortHit(board.CellAt(0, col))
	}

	if !opponent.IsDestroyed() {
		t.Fatal("Expected opponent destroyed after all cells hit")
	}
	if opponent.CanFire() {
		t.Error("Expected destroyed opponent to stop firing")
	}
	if got := opponent.FireWaterGun(); got != 0 {
		t.Errorf("Expected destroyed opponent to fire 0, got %d", got)
	}
	if got := opponent.HandleFortHit(board.CellAt(0, 0)); got != 0 {
		t.Errorf("Expected hit on destroyed opponent to return 0, got %d", got)
	}
	if !opponent.IsDestroyed() {
		t.Error("Expected destruction to be permanent")
	}
}

func TestOpponent_Summary(t *testing.T) {
	board := NewBoard()
	fort := newLineFort(t, board, 3)
	opponent := NewOpponent("#2", fort)
	opponent.HandleFortHit(board.CellAt(3, 2))

	summary := opponent.Summary()
	expected := OpponentSummary{
		OpponentID:         "#2",
		FortID:             "A",
		UndamagedCellCount: 4,
		TotalCellCount:     5,
		IsDestroyed:        false,
	}
	if summary != expected {
		t.Errorf("Expected %+v, got %+v", expected, summary)
	}
}
