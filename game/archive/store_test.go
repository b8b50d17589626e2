package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{"memory": NewMemoryStore()}

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "results.db"))
	if err != nil {
		t.Logf("sqlite unavailable, skipping: %v", err)
	} else {
		stores["sqlite"] = sqlite
	}

	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_RecordAndList(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			for i, outcome := range []string{"PLAYER_WON", "OPPONENTS_WON", "PLAYER_WON"} {
				_, err := store.Record(ctx, Result{
					GameID:        string(rune('0' + i)),
					ConfigID:      "classic",
					Outcome:       outcome,
					Shots:         30 + i,
					OpponentScore: 100 * i,
					Opponents:     5,
					FinishedAt:    base.Add(time.Duration(i) * time.Minute),
				})
				if err != nil {
					t.Fatalf("Failed to record result: %v", err)
				}
			}

			results, err := store.List(ctx, 10)
			if err != nil {
				t.Fatalf("Failed to list results: %v", err)
			}
			if len(results) != 3 {
				t.Fatalf("Expected 3 results, got %d", len(results))
			}
			if results[0].GameID != "2" || results[2].GameID != "0" {
				t.Errorf("Expected newest first, got %s..%s", results[0].GameID, results[2].GameID)
			}
			if results[1].Outcome != "OPPONENTS_WON" || results[1].OpponentScore != 100 {
				t.Errorf("Unexpected middle result: %+v", results[1])
			}
			if !results[0].FinishedAt.Equal(base.Add(2 * time.Minute)) {
				t.Errorf("Expected finish time preserved, got %v", results[0].FinishedAt)
			}

			limited, err := store.List(ctx, 2)
			if err != nil {
				t.Fatalf("Failed to list results: %v", err)
			}
			if len(limited) != 2 {
				t.Errorf("Expected 2 results with limit, got %d", len(limited))
			}
		})
	}
}

func TestStore_AssignsIDAndTime(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := store.Record(context.Background(), Result{GameID: "7", Outcome: "PLAYER_WON"})
			if err != nil {
				t.Fatalf("Failed to record result: %v", err)
			}
			second, _ := store.Record(context.Background(), Result{GameID: "8", Outcome: "PLAYER_WON"})

			if first.ID == "" || first.ID == second.ID {
				t.Errorf("Expected unique generated ids, got %q and %q", first.ID, second.ID)
			}
			if first.FinishedAt.IsZero() {
				t.Error("Expected finish time to be set")
			}
		})
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Record(ctx, Result{}); err == nil {
		t.Error("Expected error for cancelled context")
	}
	if _, err := store.List(ctx, 0); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestMemoryStore_DefaultLimit(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < DefaultListLimit+5; i++ {
		store.Record(context.Background(), Result{GameID: "x"})
	}
	results, _ := store.List(context.Background(), 0)
	if len(results) != DefaultListLimit {
		t.Errorf("Expected %d results, got %d", DefaultListLimit, len(results))
	}
}
