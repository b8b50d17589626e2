package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/waterfight/game/archive"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
)

// CheatShowAll is the only accepted cheat state
const CheatShowAll = "SHOW_ALL"

// GameService defines all game-related operations
type GameService interface {
	// Game Management
	CreateGame(ctx context.Context, configID string) (*GameSummary, error)
	GetGame(ctx context.Context, gameID string) (*GameSummary, error)
	ListGames(ctx context.Context) ([]*GameSummary, error)
	DeleteGame(ctx context.Context, gameID string) error

	// Turns
	FireShot(ctx context.Context, gameID, coordinate string) (*ShotOutcome, error)
	FireAt(ctx context.Context, gameID string, row, col int) (*ShotOutcome, error)

	// Views
	GetBoard(ctx context.Context, gameID string, reveal bool) (*BoardSnapshot, error)
	SetCheatState(ctx context.Context, gameID, state string) error
	GetOpponents(ctx context.Context, gameID string) ([]engine.OpponentSummary, error)
	GetScoreBoard(ctx context.Context, gameID string) (*engine.ScoreBoardSummary, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configID string) (*engine.GameConfig, error)

	// Results
	ListResults(ctx context.Context, limit int) ([]archive.Result, error)
}

// SessionManager defines game storage operations
type SessionManager interface {
	Create(configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game preset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
}

// EventPublisher receives game events, typically a websocket hub
type EventPublisher interface {
	Publish(event GameEvent)
}

// Session is one live game. Its mutex serializes every operation on the
// engine; games never share a lock.
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
	CheatMode      bool

	mu sync.Mutex
}

// Lock acquires the game's exclusive lock
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the game's exclusive lock
func (s *Session) Unlock() {
	s.mu.Unlock()
}
