// Package stats answers questions about archived runs with DuckDB, reading the
// Parquet batches in place.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/brensch/snekclassic/logging"
)

// DifficultySummary aggregates every archived run on one difficulty.
type DifficultySummary struct {
	Difficulty string  `json:"difficulty"`
	Runs       int64   `json:"runs"`
	Best       int64   `json:"best"`
	AvgScore   float64 `json:"avg_score"`
	AvgTurns   float64 `json:"avg_turns"`
	Records    int64   `json:"records"` // runs that set a new high score
}

type Run struct {
	RunID      string `json:"run_id"`
	Difficulty string `json:"difficulty"`
	Score      int64  `json:"score"`
	Turns      int64  `json:"turns"`
	Cause      string `json:"cause"`
	EndedAtMs  int64  `json:"ended_at_ms"`
}

// DB keeps a DuckDB view over the archive and rebuilds it periodically so new
// batches show up.
type DB struct {
	roots       []string
	refreshRate time.Duration
	log         *slog.Logger

	mu          sync.Mutex
	db          *sql.DB
	lastRefresh time.Time
}

func Open(roots []string, refreshRate time.Duration, log *slog.Logger) *DB {
	if log == nil {
		log = logging.Discard()
	}
	return &DB{roots: roots, refreshRate: refreshRate, log: log}
}

func (d *DB) get() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil && time.Since(d.lastRefresh) < d.refreshRate {
		return d.db, nil
	}

	start := time.Now()
	db, err := openDuckDBWithGlobs(d.roots)
	if err != nil {
		return nil, err
	}
	if d.db != nil {
		_ = d.db.Close()
	}
	d.db = db
	d.lastRefresh = time.Now()
	d.log.Debug("duckdb view refreshed", "roots", d.roots, "took", time.Since(start))
	return d.db, nil
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Summarize returns one row per difficulty that has archived runs.
func (d *DB) Summarize(ctx context.Context) ([]DifficultySummary, error) {
	db, err := d.get()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT
			difficulty,
			COUNT(*)::BIGINT AS runs,
			MAX(score)::BIGINT AS best,
			AVG(score)::DOUBLE AS avg_score,
			AVG(turns)::DOUBLE AS avg_turns,
			SUM(CASE WHEN outcome = 'new_high_score' THEN 1 ELSE 0 END)::BIGINT AS records
		FROM runs
		GROUP BY difficulty
		ORDER BY difficulty ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DifficultySummary, 0, 3)
	for rows.Next() {
		var s DifficultySummary
		if err := rows.Scan(&s.Difficulty, &s.Runs, &s.Best, &s.AvgScore, &s.AvgTurns, &s.Records); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TopRuns returns the highest scoring runs, most recent first on ties.
func (d *DB) TopRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	db, err := d.get()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT
			run_id, difficulty, score::BIGINT, turns::BIGINT, cause, ended_at_ms::BIGINT
		FROM runs
		ORDER BY score DESC, ended_at_ms DESC, run_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Run, 0, limit)
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Difficulty, &r.Score, &r.Turns, &r.Cause, &r.EndedAtMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// openDuckDBWithGlobs builds an in-memory DuckDB with a runs view over every
// Parquet file under roots. Files still under a tmp/ directory are excluded.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=2")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" || !hasParquet(root) {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}

	// read_parquet fails on a glob that matches nothing.
	if len(globs) == 0 {
		_, err := db.Exec(`CREATE OR REPLACE VIEW runs AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS run_id,
					NULL::VARCHAR AS difficulty,
					NULL::INTEGER AS score,
					NULL::INTEGER AS length,
					NULL::INTEGER AS turns,
					NULL::VARCHAR AS outcome,
					NULL::VARCHAR AS cause,
					NULL::BIGINT AS seed,
					NULL::INTEGER AS base_interval_ms,
					NULL::INTEGER AS final_interval_ms,
					NULL::BIGINT AS started_at_ms,
					NULL::BIGINT AS ended_at_ms,
					NULL::INTEGER[] AS obstacle_x,
					NULL::INTEGER[] AS obstacle_y,
					NULL::INTEGER[] AS moves,
					NULL::INTEGER AS previous_record,
					NULL::VARCHAR AS filename
			) WHERE 1=0`)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	sqlText := `CREATE OR REPLACE VIEW runs AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/')`
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var errFound = errors.New("found")

func hasParquet(root string) bool {
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if e.IsDir() && e.Name() == "tmp" {
			return filepath.SkipDir
		}
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".parquet") {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
