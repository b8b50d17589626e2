package service

import (
	"time"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
)

// GameSummary is the client-facing snapshot of one game
type GameSummary struct {
	GameNumber             string           `json:"gameNumber"`
	ConfigID               string           `json:"configId"`
	State                  engine.GameState `json:"state"`
	IsGameWon              bool             `json:"isGameWon"`
	IsGameLost             bool             `json:"isGameLost"`
	OpponentPoints         int              `json:"opponentPoints"`
	PointsNeededToWin      int              `json:"pointsNeededToWin"`
	NumActiveOpponentForts int              `json:"numActiveOpponentForts"`
	LastOpponentPoints     []int            `json:"lastOpponentPoints"`
	NumShots               int              `json:"numShots"`
	CheatMode              bool             `json:"cheatMode"`
	Message                string           `json:"message"`
	CreatedAt              time.Time        `json:"createdAt"`
	LastAccessedAt         time.Time        `json:"lastAccessedAt"`
}

// ShotOutcome is the result of one turn plus the game it was played in
type ShotOutcome struct {
	engine.ShotResult
	Coordinate string       `json:"coordinate"`
	Message    string       `json:"message"`
	Game       *GameSummary `json:"game"`
}

// BoardSnapshot is a board view tagged with the mode it was rendered in
type BoardSnapshot struct {
	engine.BoardView
	Revealed bool `json:"revealed"`
}

// GameEvent is broadcast to websocket subscribers of a game
type GameEvent struct {
	Type      string       `json:"type"` // "created", "shot", "game_over", "cheat", "deleted"
	GameID    string       `json:"gameId"`
	Message   string       `json:"message,omitempty"`
	Shot      *ShotOutcome `json:"shot,omitempty"`
	Game      *GameSummary `json:"game,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ConfigInfo provides information about a game preset
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for game creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Opponents   int    `json:"opponents"`
	Shape       string `json:"shape"`
}
