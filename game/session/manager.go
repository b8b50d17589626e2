package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrIDsExhausted = errors.New("could not allocate a unique game id")
)

const (
	maxAllocationTries = 16
	// maxCreateAttempts bounds how many fresh boards are tried when fort
	// placement is exhausted
	maxCreateAttempts = 10
)

// Manager is the in-memory registry of live games
type Manager struct {
	games      map[string]*service.Session
	ids        IDAllocator
	engineOpts []engine.Option
	mu         sync.RWMutex
	// build serializes engine construction; engine options may share one random source
	build sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithAllocator sets the game identifier allocator
func WithAllocator(ids IDAllocator) Option {
	return func(m *Manager) {
		m.ids = ids
	}
}

// WithEngineOptions passes options to every engine the manager creates
func WithEngineOptions(opts ...engine.Option) Option {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// NewManager creates a new game registry. Identifiers are sequential unless
// another allocator is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		games: make(map[string]*service.Session),
		ids:   NewSequentialAllocator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new game from config under a freshly allocated identifier
func (m *Manager) Create(configID string, config *engine.GameConfig) (*service.Session, error) {
	if config == nil {
		return nil, fmt.Errorf("failed to create engine: config is nil")
	}
	cfg := *config

	m.build.Lock()
	eng, err := m.newEngine(&cfg)
	m.build.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.allocate()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         &cfg,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.games[strings.ToLower(id)] = sess

	log.Debug().Str("game", id).Str("config", configID).Int("opponents", cfg.Opponents).Msg("Game created")

	return sess, nil
}

// newEngine builds an engine, starting over on a fresh board when fort
// placement is exhausted. Other errors are returned immediately.
func (m *Manager) newEngine(cfg *engine.GameConfig) (*engine.GameEngine, error) {
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var eng *engine.GameEngine
		eng, err = engine.NewEngine(cfg, m.engineOpts...)
		if err == nil {
			return eng, nil
		}
		if !errors.Is(err, engine.ErrPlacementExhausted) {
			return nil, err
		}
		log.Debug().Err(err).Int("attempt", attempt).Int("opponents", cfg.Opponents).Msg("Fort placement exhausted, retrying")
	}
	return nil, err
}

// allocate draws identifiers until one is free; callers hold m.mu
func (m *Manager) allocate() (string, error) {
	for i := 0; i < maxAllocationTries; i++ {
		id := m.ids.Next()
		if _, exists := m.games[strings.ToLower(id)]; !exists {
			return id, nil
		}
	}
	return "", ErrIDsExhausted
}

// Get retrieves a game by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.games[strings.ToLower(id)]
	if !exists {
		return nil, ErrGameNotFound
	}
	return sess, nil
}

// List returns all live games ordered by creation time
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.games))
	for _, sess := range m.games {
		result = append(result, sess)
	}
	m.mu.RUnlock()

	sortByCreation(result)
	return result
}

// Delete removes a game
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.games[key]; !exists {
		return ErrGameNotFound
	}
	delete(m.games, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a game
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.games[strings.ToLower(id)]
	if !exists {
		return ErrGameNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpired removes games that haven't been accessed in the given duration
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, sess := range m.games {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.games, id)
			removed++
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("Expired games cleaned up")
	}
	return removed
}

// Count returns the number of live games
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func sortByCreation(games []*service.Session) {
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
}
