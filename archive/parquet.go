// Package archive stores finished runs as Parquet batches so they can be
// queried later without touching the live game.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/snekclassic/game"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const SchemaVersion = "run_v1"

// RunRow is one finished run.
//
// Moves holds the heading applied on each tick: 0=Up, 1=Down, 2=Left, 3=Right.
// Obstacles are stored as parallel coordinate lists.
type RunRow struct {
	RunID      string `parquet:"run_id"`
	Difficulty string `parquet:"difficulty,dict"`
	Score      int32  `parquet:"score"`
	Length     int32  `parquet:"length"`
	Turns      int32  `parquet:"turns"`
	Outcome    string `parquet:"outcome,dict"`
	Cause      string `parquet:"cause,dict"`
	Seed       int64  `parquet:"seed"`

	BaseIntervalMs  int32 `parquet:"base_interval_ms"`
	FinalIntervalMs int32 `parquet:"final_interval_ms"`

	StartedAtMs int64 `parquet:"started_at_ms"`
	EndedAtMs   int64 `parquet:"ended_at_ms"`

	ObstacleX []int32 `parquet:"obstacle_x"`
	ObstacleY []int32 `parquet:"obstacle_y"`
	Moves     []int32 `parquet:"moves"`

	PreviousRecord int32 `parquet:"previous_record"`
}

func RowFromSummary(s game.RunSummary) RunRow {
	row := RunRow{
		RunID:           s.RunID,
		Difficulty:      string(s.Difficulty),
		Score:           int32(s.Score),
		Length:          int32(s.Length),
		Turns:           s.Turns,
		Outcome:         string(s.Outcome),
		Cause:           string(s.Cause),
		Seed:            s.Seed,
		BaseIntervalMs:  int32(s.BaseInterval.Milliseconds()),
		FinalIntervalMs: int32(s.FinalInterval.Milliseconds()),
		StartedAtMs:     s.StartedAt.UnixMilli(),
		EndedAtMs:       s.EndedAt.UnixMilli(),
		ObstacleX:       make([]int32, len(s.Obstacles)),
		ObstacleY:       make([]int32, len(s.Obstacles)),
		Moves:           make([]int32, len(s.Moves)),
		PreviousRecord:  int32(s.PreviousRecord),
	}
	for i, o := range s.Obstacles {
		row.ObstacleX[i] = o.X
		row.ObstacleY[i] = o.Y
	}
	for i, m := range s.Moves {
		row.Moves[i] = int32(m)
	}
	return row
}

// Summary converts a stored row back into the engine's record type.
func (r RunRow) Summary() game.RunSummary {
	s := game.RunSummary{
		RunID:          r.RunID,
		Difficulty:     game.Difficulty(r.Difficulty),
		Score:          int(r.Score),
		Length:         int(r.Length),
		Turns:          r.Turns,
		Outcome:        game.Outcome(r.Outcome),
		Cause:          game.Cause(r.Cause),
		Seed:           r.Seed,
		BaseInterval:   time.Duration(r.BaseIntervalMs) * time.Millisecond,
		FinalInterval:  time.Duration(r.FinalIntervalMs) * time.Millisecond,
		StartedAt:      time.UnixMilli(r.StartedAtMs),
		EndedAt:        time.UnixMilli(r.EndedAtMs),
		PreviousRecord: int(r.PreviousRecord),
	}
	n := min(len(r.ObstacleX), len(r.ObstacleY))
	s.Obstacles = make([]game.Point, n)
	for i := 0; i < n; i++ {
		s.Obstacles[i] = game.Point{X: r.ObstacleX[i], Y: r.ObstacleY[i]}
	}
	s.Moves = make([]game.Direction, len(r.Moves))
	for i, m := range r.Moves {
		s.Moves[i] = game.Direction(m)
	}
	return s
}

// WriteBatchAtomic writes rows into outDir/tmp and then renames the file into
// outDir, so readers globbing outDir never see a partial file.
func WriteBatchAtomic(outDir string, rows []RunRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("runs_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadRuns(path string) ([]RunRow, error) {
	rows, err := parquet.ReadFile[RunRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadDir reads every finished batch directly under dir, oldest first.
func ReadDir(dir string) ([]RunRow, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	var out []RunRow
	for _, p := range paths {
		rows, err := ReadRuns(p)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
