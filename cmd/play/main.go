package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/brensch/snekclassic/archive"
	"github.com/brensch/snekclassic/engine"
	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/internal/env"
	"github.com/brensch/snekclassic/logging"
	"github.com/brensch/snekclassic/scores"
	"github.com/brensch/snekclassic/tui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	scorePath := fs.String("scores", env.GetOrDefault("SNEK_SCORES", "snek-data/highscores.json"), "High score store (.json file, .db for SQLite, empty for memory)")
	difficulty := fs.String("difficulty", env.GetOrDefault("SNEK_DIFFICULTY", "normal"), "Starting difficulty: normal, medium or hard")
	archiveDir := fs.String("archive-dir", env.GetOrDefault("SNEK_ARCHIVE_DIR", ""), "If set, finished runs are written here as parquet batches")
	runsPerFlush := fs.Int("runs-per-flush", env.IntOrDefault("SNEK_RUNS_PER_FLUSH", 20), "Runs buffered per parquet batch")
	seed := fs.Int64("seed", env.Int64OrDefault("SNEK_SEED", 0), "Random seed; 0 picks one from the clock")
	logPath := fs.String("log-path", env.GetOrDefault("SNEK_LOG_PATH", ""), "Log file; the terminal belongs to the game so logs are dropped when empty")
	logFormat := fs.String("log-format", env.GetOrDefault("SNEK_LOG_FORMAT", "text"), "Log format: text, json or pretty")
	logLevel := fs.String("log-level", env.GetOrDefault("SNEK_LOG_LEVEL", "info"), "Log level")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	d, ok := game.ParseDifficulty(*difficulty)
	if !ok {
		log.Fatalf("unknown difficulty %q", *difficulty)
	}

	store, closer, err := scores.Open(*scorePath)
	if err != nil {
		log.Fatalf("open score store: %v", err)
	}
	defer closer.Close()

	feed := tui.NewFeed(8)
	opts := []engine.Option{
		engine.WithStore(store),
		engine.WithLogger(logger),
		engine.WithFrameHandler(feed.Handle),
	}
	if *seed != 0 {
		opts = append(opts, engine.WithSeed(*seed))
	}
	var writer *archive.Writer
	if *archiveDir != "" {
		writer = archive.NewWriter(*archiveDir, *runsPerFlush, logger)
		opts = append(opts, engine.WithRecorder(writer))
	}

	eng, err := engine.New(game.DefaultConfig(), opts...)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	eng.SetDifficulty(d)

	p := tea.NewProgram(tui.NewModel(eng, feed.Frames()), tea.WithAltScreen())
	_, runErr := p.Run()
	eng.Close()
	if writer != nil {
		logger.Info("archive closed", "runs", writer.Close())
	}
	if runErr != nil {
		log.Fatalf("tui: %v", runErr)
	}
}
