package engine

import (
	"math/rand/v2"
	"testing"
)

func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

func createTestEngine(t *testing.T, opponents int, seed uint64) *GameEngine {
	t.Helper()
	eng, err := NewEngineWithOpponents(opponents, WithRand(newTestRand(seed)))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

// findFieldCell returns a coordinate that belongs to no fort
func findFieldCell(t *testing.T, eng *GameEngine) string {
	t.Helper()
	for _, cell := range eng.GetBoard().Cells() {
		if !cell.IsPartOfFort() {
			return FormatCoordinate(cell.Row, cell.Col)
		}
	}
	t.Fatal("Expected at least one cell outside every fort")
	return ""
}
