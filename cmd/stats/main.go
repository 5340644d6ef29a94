package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brensch/snekclassic/internal/env"
	"github.com/brensch/snekclassic/stats"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	archiveDir := fs.String("archive-dir", env.GetOrDefault("SNEK_ARCHIVE_DIR", "snek-data/runs"), "Directory of parquet run batches")
	top := fs.Int("top", env.IntOrDefault("SNEK_STATS_TOP", 10), "Number of best runs to list")
	asJSON := fs.Bool("json", env.BoolOrDefault("SNEK_STATS_JSON", false), "Print JSON instead of tables")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	db := stats.Open([]string{*archiveDir}, time.Minute, nil)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, err := db.Summarize(ctx)
	if err != nil {
		log.Fatalf("summarize: %v", err)
	}
	runs, err := db.TopRuns(ctx, *top)
	if err != nil {
		log.Fatalf("top runs: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"difficulties": summary, "top": runs})
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIFFICULTY\tRUNS\tBEST\tAVG SCORE\tAVG TURNS\tRECORDS")
	for _, s := range summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.1f\t%d\n", s.Difficulty, s.Runs, s.Best, s.AvgScore, s.AvgTurns, s.Records)
	}
	tw.Flush()

	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDIFFICULTY\tSCORE\tTURNS\tCAUSE\tENDED")
	for _, r := range runs {
		ended := time.UnixMilli(r.EndedAtMs).Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.RunID, r.Difficulty, r.Score, r.Turns, r.Cause, ended)
	}
	tw.Flush()
}
