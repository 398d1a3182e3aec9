// Package store handles SQLite persistence of finished games.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tictac/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for game history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			outcome TEXT NOT NULL,
			board TEXT NOT NULL,
			moves INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_games_ended_at ON games(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_games_mode ON games(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertGame stores a finished game and returns its row id.
func (s *Store) InsertGame(ctx context.Context, g model.GameRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (session_id, started_at, ended_at, mode, outcome, board, moves)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.SessionID,
		g.StartedAt.UTC().Format(timeLayout),
		g.EndedAt.UTC().Format(timeLayout),
		string(g.Mode),
		string(g.Outcome),
		g.Board,
		g.Moves,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListGames returns games matching the filter, oldest first.
func (s *Store) ListGames(ctx context.Context, filter model.HistoryFilter) ([]model.GameRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Mode != model.ModeNone {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	limit := ""
	if filter.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, filter.Last)
	}
	// Newest N are selected first, then returned in chronological order.
	query := fmt.Sprintf(`SELECT id, session_id, started_at, ended_at, mode, outcome, board, moves FROM (
		SELECT * FROM games
		WHERE %s
		ORDER BY ended_at DESC, id DESC
		%s
	) ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var games []model.GameRecord
	for rows.Next() {
		var g model.GameRecord
		var startedAt, endedAt, mode, outcome string
		if err := rows.Scan(&g.ID, &g.SessionID, &startedAt, &endedAt, &mode, &outcome, &g.Board, &g.Moves); err != nil {
			return nil, err
		}
		if g.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if g.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		g.Mode = model.Mode(mode)
		g.Outcome = model.Outcome(outcome)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

// OutcomeCounts aggregates results per outcome for a mode ("" for all modes).
func (s *Store) OutcomeCounts(ctx context.Context, mode model.Mode) (map[model.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM games
		 WHERE (? = '' OR mode = ?)
		 GROUP BY outcome`, string(mode), string(mode))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[model.Outcome]int{}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		result[model.Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAll removes every recorded game.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
