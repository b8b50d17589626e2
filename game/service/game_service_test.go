package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/waterfight/game/archive"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
)

var errNotFound = errors.New("game not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	next     int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(configID string, config *engine.GameConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("%d", m.next)
	m.next++

	cfg := *config
	eng, err := engine.NewEngine(&cfg, engine.WithRand(rand.New(rand.NewPCG(uint64(m.next), 99))))
	if err != nil {
		return nil, err
	}

	sess := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         &cfg,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for i := 0; i < m.next; i++ {
		if sess, ok := m.sessions[fmt.Sprintf("%d", i)]; ok {
			result = append(result, sess)
		}
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errNotFound
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
}

func NewMockConfigManager() *MockConfigManager {
	classic := engine.DefaultGameConfig()
	duel := engine.DefaultGameConfig()
	duel.Name = "Duel"
	duel.Opponents = 1
	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{"classic": classic, "duel": duel},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	config, ok := m.configs[name]
	if !ok {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	var infos []*service.ConfigInfo
	for id, c := range m.configs {
		infos = append(infos, &service.ConfigInfo{ConfigID: id, Name: c.Name, Opponents: c.Opponents})
	}
	return infos, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["classic"]
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []service.GameEvent
}

func (p *recordingPublisher) Publish(event service.GameEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc       service.GameService
	sessions  *MockSessionManager
	store     *archive.MemoryStore
	publisher *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		sessions:  NewMockSessionManager(),
		store:     archive.NewMemoryStore(),
		publisher: &recordingPublisher{},
	}
	f.svc = service.NewGameService(f.sessions, NewMockConfigManager(),
		service.WithArchive(f.store), service.WithPublisher(f.publisher))
	return f
}

func (f *fixture) engine(t *testing.T, id string) *engine.GameEngine {
	t.Helper()
	sess, err := f.sessions.Get(id)
	if err != nil {
		t.Fatalf("Failed to get game %s: %v", id, err)
	}
	return sess.Engine
}

func TestGameService_CreateGame(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("default preset", func(t *testing.T) {
		game, err := f.svc.CreateGame(ctx, "")
		if err != nil {
			t.Fatalf("Failed to create game: %v", err)
		}
		if game.GameNumber != "0" {
			t.Errorf("Expected game number '0', got '%s'", game.GameNumber)
		}
		if game.ConfigID != "classic" {
			t.Errorf("Expected config id 'classic', got '%s'", game.ConfigID)
		}
		if game.State != engine.InProgress || game.IsGameWon || game.IsGameLost {
			t.Errorf("Expected fresh game, got %+v", game)
		}
		if game.NumActiveOpponentForts != 5 {
			t.Errorf("Expected 5 active forts, got %d", game.NumActiveOpponentForts)
		}
		if game.LastOpponentPoints == nil || len(game.LastOpponentPoints) != 0 {
			t.Errorf("Expected empty last opponent points, got %v", game.LastOpponentPoints)
		}
	})

	t.Run("named preset", func(t *testing.T) {
		game, err := f.svc.CreateGame(ctx, "duel")
		if err != nil {
			t.Fatalf("Failed to create game: %v", err)
		}
		if game.NumActiveOpponentForts != 1 || game.ConfigID != "duel" {
			t.Errorf("Unexpected duel game: %+v", game)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		if _, err := f.svc.CreateGame(ctx, "nope"); err == nil {
			t.Error("Expected error for unknown preset")
		}
	})

	if types := f.publisher.types(); len(types) != 2 || types[0] != "created" {
		t.Errorf("Expected two created events, got %v", types)
	}
}

func TestGameService_FireShot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game, _ := f.svc.CreateGame(ctx, "classic")
	eng := f.engine(t, game.GameNumber)

	var field string
	for _, cell := range eng.GetBoard().Cells() {
		if !cell.IsPartOfFort() {
			field = engine.FormatCoordinate(cell.Row, cell.Col)
			break
		}
	}

	outcome, err := f.svc.FireShot(ctx, game.GameNumber, " "+field+" ")
	if err != nil {
		t.Fatalf("Failed to fire: %v", err)
	}
	if outcome.IsHit || outcome.WasAlreadyShot {
		t.Errorf("Expected a fresh miss, got %+v", outcome.ShotResult)
	}
	if outcome.Coordinate != field {
		t.Errorf("Expected coordinate %s, got %s", field, outcome.Coordinate)
	}
	if outcome.Game.NumShots != 1 || outcome.Game.OpponentPoints != 100 {
		t.Errorf("Expected 1 shot and 100 points, got %+v", outcome.Game)
	}
	if len(outcome.Game.LastOpponentPoints) != 5 {
		t.Errorf("Expected 5 opponent scores, got %v", outcome.Game.LastOpponentPoints)
	}

	// Lower-case coordinates are accepted
	fort := eng.GetForts()[0].Cells()[0]
	lower := fmt.Sprintf("%c%d", 'a'+fort.Row, fort.Col+1)
	hit, err := f.svc.FireShot(ctx, game.GameNumber, lower)
	if err != nil {
		t.Fatalf("Failed to fire: %v", err)
	}
	if !hit.IsHit {
		t.Errorf("Expected hit at %s, got %+v", lower, hit.ShotResult)
	}

	// Invalid coordinates are lenient no-op turns
	noop, err := f.svc.FireShot(ctx, game.GameNumber, "Z99")
	if err != nil {
		t.Fatalf("Expected lenient handling, got %v", err)
	}
	if len(noop.OpponentScores) != 0 || noop.Game.NumShots != 2 {
		t.Errorf("Expected no-op turn, got %+v", noop)
	}

	if _, err := f.svc.FireShot(ctx, "missing", "A1"); !errors.Is(err, errNotFound) {
		t.Errorf("Expected wrapped not found error, got %v", err)
	}
}

func TestGameService_FireAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game, _ := f.svc.CreateGame(ctx, "classic")

	for _, pos := range [][2]int{{-1, 0}, {0, 10}, {10, 10}} {
		if _, err := f.svc.FireAt(ctx, game.GameNumber, pos[0], pos[1]); !errors.Is(err, engine.ErrInvalidCoordinate) {
			t.Errorf("Expected ErrInvalidCoordinate for %v, got %v", pos, err)
		}
	}

	outcome, err := f.svc.FireAt(ctx, game.GameNumber, 1, 4)
	if err != nil {
		t.Fatalf("Failed to fire: %v", err)
	}
	if outcome.Coordinate != "B5" {
		t.Errorf("Expected coordinate B5, got %s", outcome.Coordinate)
	}
}

func TestGameService_GameOverAndArchive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game, _ := f.svc.CreateGame(ctx, "duel")
	eng := f.engine(t, game.GameNumber)

	var last *service.ShotOutcome
	for _, cell := range eng.GetForts()[0].Cells() {
		var err error
		last, err = f.svc.FireAt(ctx, game.GameNumber, cell.Row, cell.Col)
		if err != nil {
			t.Fatalf("Failed to fire: %v", err)
		}
	}

	if !last.Game.IsGameWon || last.GameState != engine.PlayerWon {
		t.Fatalf("Expected player win, got %+v", last.Game)
	}

	if _, err := f.svc.FireShot(ctx, game.GameNumber, "A1"); !errors.Is(err, service.ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
	if _, err := f.svc.FireAt(ctx, game.GameNumber, 0, 0); !errors.Is(err, service.ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}

	results, err := f.svc.ListResults(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 archived result, got %d", len(results))
	}
	r := results[0]
	if r.GameID != game.GameNumber || r.ConfigID != "duel" || r.Outcome != "PLAYER_WON" {
		t.Errorf("Unexpected result: %+v", r)
	}
	if r.Shots != 5 || r.FortsDestroyed != 1 || r.Opponents != 1 || r.OpponentScore != 28 {
		t.Errorf("Unexpected result counts: %+v", r)
	}

	types := f.publisher.types()
	if types[len(types)-1] != "game_over" {
		t.Errorf("Expected last event game_over, got %v", types)
	}
}

func TestGameService_Board(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game, _ := f.svc.CreateGame(ctx, "classic")

	fog, err := f.svc.GetBoard(ctx, game.GameNumber, false)
	if err != nil {
		t.Fatalf("Failed to get board: %v", err)
	}
	if fog.Revealed || fog.CellStates[0][0] != engine.ViewFog {
		t.Errorf("Expected fogged board, got revealed=%v cell=%s", fog.Revealed, fog.CellStates[0][0])
	}

	forced, _ := f.svc.GetBoard(ctx, game.GameNumber, true)
	if !forced.Revealed {
		t.Error("Expected reveal on request")
	}

	t.Run("invalid cheat state", func(t *testing.T) {
		for _, state := range []string{"", "show_all", "REVEAL"} {
			if err := f.svc.SetCheatState(ctx, game.GameNumber, state); !errors.Is(err, service.ErrInvalidCheatState) {
				t.Errorf("Expected ErrInvalidCheatState for %q, got %v", state, err)
			}
		}
	})

	t.Run("show all", func(t *testing.T) {
		if err := f.svc.SetCheatState(ctx, game.GameNumber, `"SHOW_ALL"`); err != nil {
			t.Fatalf("Failed to set cheat state: %v", err)
		}
		board, _ := f.svc.GetBoard(ctx, game.GameNumber, false)
		if !board.Revealed {
			t.Error("Expected cheat mode to reveal the board")
		}
		forts := 0
		for _, row := range board.CellStates {
			for _, v := range row {
				if v == engine.ViewFort {
					forts++
				}
			}
		}
		if forts != 25 {
			t.Errorf("Expected 25 fort cells revealed, got %d", forts)
		}
		summary, _ := f.svc.GetGame(ctx, game.GameNumber)
		if !summary.CheatMode {
			t.Error("Expected summary to report cheat mode")
		}
	})

	for _, state := range []string{"SHOW_ALL", "PEEK"} {
		if err := f.svc.SetCheatState(ctx, "missing", state); !errors.Is(err, errNotFound) {
			t.Errorf("Expected not found for %q on a missing game, got %v", state, err)
		}
	}
}

func TestGameService_Queries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, _ := f.svc.CreateGame(ctx, "classic")
	second, _ := f.svc.CreateGame(ctx, "duel")

	games, err := f.svc.ListGames(ctx)
	if err != nil {
		t.Fatalf("Failed to list games: %v", err)
	}
	if len(games) != 2 || games[0].GameNumber != first.GameNumber || games[1].GameNumber != second.GameNumber {
		t.Errorf("Unexpected games: %+v", games)
	}

	opponents, err := f.svc.GetOpponents(ctx, first.GameNumber)
	if err != nil {
		t.Fatalf("Failed to get opponents: %v", err)
	}
	if len(opponents) != 5 || opponents[0].OpponentID != "#1" || opponents[4].FortID != "E" {
		t.Errorf("Unexpected opponents: %+v", opponents)
	}

	f.svc.FireAt(ctx, second.GameNumber, 9, 9)
	sb, err := f.svc.GetScoreBoard(ctx, second.GameNumber)
	if err != nil {
		t.Fatalf("Failed to get scoreboard: %v", err)
	}
	if sb.WinningScore != engine.WinningScore || sb.TotalScore+sb.PointsNeededToWin != engine.WinningScore {
		t.Errorf("Unexpected scoreboard: %+v", sb)
	}

	if err := f.svc.DeleteGame(ctx, first.GameNumber); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := f.svc.GetGame(ctx, first.GameNumber); !errors.Is(err, errNotFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
	if err := f.svc.DeleteGame(ctx, first.GameNumber); !errors.Is(err, errNotFound) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}

	configs, err := f.svc.ListConfigs(ctx)
	if err != nil || len(configs) != 2 {
		t.Errorf("Expected 2 configs, got %d (%v)", len(configs), err)
	}
	if _, err := f.svc.LoadConfig(ctx, "duel"); err != nil {
		t.Errorf("Failed to load config: %v", err)
	}
}

func TestGameService_ConcurrentShotsSerialized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game, _ := f.svc.CreateGame(ctx, "classic")

	var wg sync.WaitGroup
	for row := 0; row < engine.BoardSize; row++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for col := 0; col < 2; col++ {
				f.svc.FireAt(ctx, game.GameNumber, row, col)
			}
		}(row)
	}
	wg.Wait()

	summary, _ := f.svc.GetGame(ctx, game.GameNumber)
	sb, _ := f.svc.GetScoreBoard(ctx, game.GameNumber)
	if summary.NumShots != 2*engine.BoardSize {
		t.Errorf("Expected %d shots, got %d", 2*engine.BoardSize, summary.NumShots)
	}
	if sb.TurnCount > summary.NumShots {
		t.Errorf("Expected at most one volley per shot, got %d volleys for %d shots", sb.TurnCount, summary.NumShots)
	}
}
