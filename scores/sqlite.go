package scores

import (
	"database/sql"
	"fmt"

	"github.com/brensch/snekclassic/game"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per difficulty. Saves only ever raise a record,
// so several sessions sharing the database cannot overwrite each other's
// better scores.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS high_scores (
			difficulty TEXT PRIMARY KEY,
			score INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load() (game.HighScores, error) {
	rows, err := s.db.Query(`SELECT difficulty, score FROM high_scores`)
	if err != nil {
		return game.NewHighScores(), fmt.Errorf("query high scores: %w", err)
	}
	defer rows.Close()

	hs := game.HighScores{}
	for rows.Next() {
		var d string
		var score int
		if err := rows.Scan(&d, &score); err != nil {
			return game.NewHighScores(), fmt.Errorf("scan high score: %w", err)
		}
		hs[game.Difficulty(d)] = score
	}
	if err := rows.Err(); err != nil {
		return game.NewHighScores(), fmt.Errorf("iterate high scores: %w", err)
	}
	return hs.Normalize(), nil
}

func (s *SQLiteStore) Save(hs game.HighScores) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO high_scores (difficulty, score, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(difficulty) DO UPDATE SET
			score = MAX(high_scores.score, excluded.score),
			updated_at = CASE WHEN excluded.score > high_scores.score
				THEN excluded.updated_at ELSE high_scores.updated_at END`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for d, score := range hs.Normalize() {
		if _, err := stmt.Exec(string(d), score); err != nil {
			return fmt.Errorf("upsert %s: %w", d, err)
		}
	}
	return tx.Commit()
}
