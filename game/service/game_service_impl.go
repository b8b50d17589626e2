package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/waterfight/game/archive"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
)

var (
	ErrGameOver          = errors.New("game is over")
	ErrInvalidCheatState = errors.New("invalid cheat state")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithArchive records finished games in store
func WithArchive(store archive.Store) Option {
	return func(s *gameServiceImpl) {
		s.results = store
	}
}

// WithPublisher sends game events to pub
func WithPublisher(pub EventPublisher) Option {
	return func(s *gameServiceImpl) {
		s.publisher = pub
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	results   archive.Store
	publisher EventPublisher
}

// NewGameService creates a new game service instance. Without WithArchive
// finished games are kept in memory.
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.results == nil {
		s.results = archive.NewMemoryStore()
	}
	return s
}

// CreateGame starts a game from the named preset, or the default one when configID is empty
func (s *gameServiceImpl) CreateGame(ctx context.Context, configID string) (*GameSummary, error) {
	var config *engine.GameConfig
	if configID != "" {
		var err error
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configIDFor(config)
	}

	sess, err := s.sessions.Create(configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	sess.Lock()
	summary := summarize(sess)
	sess.Unlock()

	log.Info().Str("game", sess.ID).Str("config", configID).Int("opponents", config.Opponents).Msg("Game started")
	s.publish(GameEvent{Type: "created", GameID: sess.ID, Message: summary.Message, Game: summary})

	return summary, nil
}

// configIDFor looks up the preset identifier of a loaded config by display name
func (s *gameServiceImpl) configIDFor(config *engine.GameConfig) string {
	infos, err := s.configs.ListConfigs()
	if err == nil {
		for _, info := range infos {
			if info.Name == config.Name {
				return info.ConfigID
			}
		}
	}
	return "default"
}

// GetGame returns the summary of a game
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameSummary, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	s.sessions.UpdateLastAccessed(sess.ID)
	return summarize(sess), nil
}

// ListGames returns summaries of every live game
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameSummary, error) {
	games := s.sessions.List()
	result := make([]*GameSummary, 0, len(games))
	for _, sess := range games {
		sess.Lock()
		result = append(result, summarize(sess))
		sess.Unlock()
	}
	return result, nil
}

// DeleteGame removes a game
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID string) error {
	if err := s.sessions.Delete(gameID); err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}
	log.Info().Str("game", gameID).Msg("Game deleted")
	s.publish(GameEvent{Type: "deleted", GameID: gameID})
	return nil
}

// FireShot plays one turn at a "LetterNumber" coordinate. Malformed or
// off-board coordinates are lenient no-op turns, like the engine.
func (s *gameServiceImpl) FireShot(ctx context.Context, gameID, coordinate string) (*ShotOutcome, error) {
	coordinate = strings.ToUpper(strings.TrimSpace(coordinate))
	return s.fire(ctx, gameID, coordinate, func(eng *engine.GameEngine) engine.ShotResult {
		return eng.ProcessShot(coordinate)
	})
}

// FireAt plays one turn at a zero-based row/col; out-of-range positions are rejected
func (s *gameServiceImpl) FireAt(ctx context.Context, gameID string, row, col int) (*ShotOutcome, error) {
	if row < 0 || row >= engine.BoardSize || col < 0 || col >= engine.BoardSize {
		return nil, fmt.Errorf("%w: row %d col %d", engine.ErrInvalidCoordinate, row, col)
	}
	coordinate := engine.FormatCoordinate(row, col)
	return s.fire(ctx, gameID, coordinate, func(eng *engine.GameEngine) engine.ShotResult {
		return eng.ProcessShotAt(row, col)
	})
}

func (s *gameServiceImpl) fire(ctx context.Context, gameID, coordinate string, shoot func(*engine.GameEngine) engine.ShotResult) (*ShotOutcome, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Engine.IsGameOver() {
		return nil, fmt.Errorf("%w: game %s ended with %s", ErrGameOver, sess.ID, sess.Engine.GetState())
	}

	result := shoot(sess.Engine)
	s.sessions.UpdateLastAccessed(sess.ID)

	outcome := &ShotOutcome{
		ShotResult: result,
		Coordinate: coordinate,
		Message:    sess.Engine.GetMessage(),
		Game:       summarize(sess),
	}

	log.Debug().
		Str("game", sess.ID).
		Str("coord", coordinate).
		Bool("hit", result.IsHit).
		Bool("repeat", result.WasAlreadyShot).
		Ints("scores", result.OpponentScores).
		Str("state", string(result.GameState)).
		Msg("Shot fired")

	s.publish(GameEvent{Type: "shot", GameID: sess.ID, Message: outcome.Message, Shot: outcome})

	if result.GameState.IsTerminal() {
		s.finish(ctx, sess)
		s.publish(GameEvent{Type: "game_over", GameID: sess.ID, Message: outcome.Message, Game: outcome.Game})
	}

	return outcome, nil
}

// finish archives a game that just reached a terminal state; callers hold the game lock
func (s *gameServiceImpl) finish(ctx context.Context, sess *Session) {
	eng := sess.Engine
	destroyed := 0
	for _, o := range eng.GetOpponents() {
		if o.IsDestroyed() {
			destroyed++
		}
	}
	sb := eng.GetScoreBoard()

	result, err := s.results.Record(ctx, archive.Result{
		GameID:         sess.ID,
		ConfigID:       sess.ConfigID,
		Outcome:        string(eng.GetState()),
		Shots:          eng.ShotCount(),
		OpponentScore:  sb.TotalScore(),
		Turns:          sb.TurnCount(),
		FortsDestroyed: destroyed,
		Opponents:      len(eng.GetOpponents()),
	})
	if err != nil {
		log.Error().Err(err).Str("game", sess.ID).Msg("Failed to archive result")
		return
	}

	log.Info().
		Str("game", sess.ID).
		Str("state", result.Outcome).
		Int("shots", result.Shots).
		Int("opponent_score", result.OpponentScore).
		Msg("Game finished")
}

// GetBoard renders the board; a game in cheat mode is always revealed
func (s *gameServiceImpl) GetBoard(ctx context.Context, gameID string, reveal bool) (*BoardSnapshot, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	revealed := reveal || sess.CheatMode
	return &BoardSnapshot{BoardView: sess.Engine.BoardView(revealed), Revealed: revealed}, nil
}

// SetCheatState switches a game to reveal-all. Only SHOW_ALL is accepted,
// optionally JSON-quoted.
func (s *gameServiceImpl) SetCheatState(ctx context.Context, gameID, state string) error {
	sess, err := s.lookup(gameID)
	if err != nil {
		return err
	}

	state = strings.Trim(strings.TrimSpace(state), `"`)
	if state != CheatShowAll {
		return fmt.Errorf("%w: %q", ErrInvalidCheatState, state)
	}

	sess.Lock()
	sess.CheatMode = true
	summary := summarize(sess)
	sess.Unlock()

	log.Info().Str("game", sess.ID).Msg("Cheat mode enabled")
	s.publish(GameEvent{Type: "cheat", GameID: sess.ID, Game: summary})
	return nil
}

// GetOpponents returns the opponent summaries of a game
func (s *gameServiceImpl) GetOpponents(ctx context.Context, gameID string) ([]engine.OpponentSummary, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Engine.OpponentSummaries(), nil
}

// GetScoreBoard returns the scoreboard of a game
func (s *gameServiceImpl) GetScoreBoard(ctx context.Context, gameID string) (*engine.ScoreBoardSummary, error) {
	sess, err := s.lookup(gameID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	summary := sess.Engine.ScoreBoardSummary()
	return &summary, nil
}

// ListConfigs returns all available presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific preset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configID string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configID)
}

// ListResults returns the most recent finished games
func (s *gameServiceImpl) ListResults(ctx context.Context, limit int) ([]archive.Result, error) {
	return s.results.List(ctx, limit)
}

func (s *gameServiceImpl) lookup(gameID string) (*Session, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", gameID, err)
	}
	return sess, nil
}

func (s *gameServiceImpl) publish(event GameEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = time.Now()
	s.publisher.Publish(event)
}

// summarize builds the client view of a game; callers hold the game lock
func summarize(sess *Session) *GameSummary {
	eng := sess.Engine
	sb := eng.GetScoreBoard()
	return &GameSummary{
		GameNumber:             sess.ID,
		ConfigID:               sess.ConfigID,
		State:                  eng.GetState(),
		IsGameWon:              eng.GetState() == engine.PlayerWon,
		IsGameLost:             eng.GetState() == engine.OpponentsWon,
		OpponentPoints:         sb.TotalScore(),
		PointsNeededToWin:      sb.PointsNeededToWin(),
		NumActiveOpponentForts: eng.ActiveOpponentCount(),
		LastOpponentPoints:     eng.LastOpponentScores(),
		NumShots:               eng.ShotCount(),
		CheatMode:              sess.CheatMode,
		Message:                eng.GetMessage(),
		CreatedAt:              sess.CreatedAt,
		LastAccessedAt:         sess.LastAccessedAt,
	}
}
