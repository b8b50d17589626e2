package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List when the caller passes a non-positive limit
const DefaultListLimit = 50

// Result is the record of one finished game
type Result struct {
	ID             string    `json:"id"`
	GameID         string    `json:"gameId"`
	ConfigID       string    `json:"configId"`
	Outcome        string    `json:"outcome"`
	Shots          int       `json:"shots"`
	OpponentScore  int       `json:"opponentScore"`
	Turns          int       `json:"turns"`
	FortsDestroyed int       `json:"fortsDestroyed"`
	Opponents      int       `json:"opponents"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Store persists finished-game results
type Store interface {
	Record(ctx context.Context, result Result) (Result, error)
	// List returns the most recent results first
	List(ctx context.Context, limit int) ([]Result, error)
	Close() error
}

// prepare assigns an ID and timestamp when missing
func prepare(result Result) Result {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now().UTC()
	}
	return result
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// MemoryStore keeps results in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	results []Result
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, result Result) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	result = prepare(result)

	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()

	return result, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})

	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
