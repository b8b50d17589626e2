// Package engine provides the core game logic for the Water Fight game.
//
// The engine package implements the game mechanics including:
//   - A fixed 10x10 board of cells addressed by "LetterNumber" coordinates
//   - Random-walk generation of connected 5-cell fort shapes
//   - Collision-free fort placement with bounded retries
//   - Tiered fort damage scoring and opponent counter-fire
//   - Win/loss state transitions driven by each player shot
//
// Core Types:
//
// GameEngine owns a Board, the placed Forts, one Opponent per Fort and a
// ScoreBoard. Forts hold references into the Board's cells; the Board keeps
// the storage. GameConfig is a game preset loaded from JSON or YAML.
//
// Usage:
//
//	eng, err := engine.NewEngineWithOpponents(5)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := eng.ProcessShot("B5")
//	if eng.IsGameOver() {
//		fmt.Println(eng.GetState())
//	}
//
// Game Rules:
//
// The player shoots one cell per turn. A shot that lands on an undamaged fort
// cell damages that fort. After every shot each surviving opponent fires back
// and scores points according to how intact its fort still is. The player
// wins when every fort is destroyed; the opponents win once their combined
// score reaches WinningScore.
package engine
