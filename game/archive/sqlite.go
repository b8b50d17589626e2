package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id              TEXT PRIMARY KEY,
	game_id         TEXT NOT NULL,
	config_id       TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	shots           INTEGER NOT NULL,
	opponent_score  INTEGER NOT NULL,
	turns           INTEGER NOT NULL,
	forts_destroyed INTEGER NOT NULL,
	opponents       INTEGER NOT NULL,
	finished_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_finished_at ON results(finished_at DESC);
`

// SQLiteStore keeps results in a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// openDB opens the file with a busy timeout and WAL journaling
func openDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

func (s *SQLiteStore) Record(ctx context.Context, result Result) (Result, error) {
	result = prepare(result)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, game_id, config_id, outcome, shots, opponent_score,
			turns, forts_destroyed, opponents, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.GameID, result.ConfigID, result.Outcome, result.Shots,
		result.OpponentScore, result.Turns, result.FortsDestroyed, result.Opponents,
		result.FinishedAt.UTC())
	if err != nil {
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, config_id, outcome, shots, opponent_score,
			turns, forts_destroyed, opponents, finished_at
		FROM results
		ORDER BY finished_at DESC
		LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var r Result
		var finished time.Time
		if err := rows.Scan(&r.ID, &r.GameID, &r.ConfigID, &r.Outcome, &r.Shots,
			&r.OpponentScore, &r.Turns, &r.FortsDestroyed, &r.Opponents, &finished); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.FinishedAt = finished.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
