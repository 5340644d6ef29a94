package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/snekclassic/archive"
	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/internal/env"
	"github.com/brensch/snekclassic/logging"
	"github.com/brensch/snekclassic/scores"
	"github.com/brensch/snekclassic/server"
	"github.com/brensch/snekclassic/stats"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", env.GetOrDefault("SNEK_LISTEN", "127.0.0.1:8080"), "HTTP listen address")
	scorePath := fs.String("scores", env.GetOrDefault("SNEK_SCORES", "snek-data/highscores.db"), "High score store shared by all sessions (.db for SQLite, .json file, empty for memory)")
	archiveDir := fs.String("archive-dir", env.GetOrDefault("SNEK_ARCHIVE_DIR", "snek-data/runs"), "Directory for parquet run batches; empty disables the archive and /api/stats")
	runsPerFlush := fs.Int("runs-per-flush", env.IntOrDefault("SNEK_RUNS_PER_FLUSH", 50), "Runs buffered per parquet batch")
	statsRefresh := fs.Duration("stats-refresh", env.DurationOrDefault("SNEK_STATS_REFRESH", 30*time.Second), "How often the stats view picks up new batches")
	staticDir := fs.String("static-dir", env.GetOrDefault("SNEK_STATIC_DIR", ""), "Optional directory served at / (index.html fallback)")
	logFormat := fs.String("log-format", env.GetOrDefault("SNEK_LOG_FORMAT", "json"), "Log format: text, json or pretty")
	logLevel := fs.String("log-level", env.GetOrDefault("SNEK_LOG_LEVEL", "info"), "Log level")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	store, closer, err := scores.Open(*scorePath)
	if err != nil {
		log.Fatalf("open score store: %v", err)
	}
	defer closer.Close()

	cfg := server.Config{
		Game:      game.DefaultConfig(),
		Store:     store,
		StaticDir: *staticDir,
		Log:       logger,
	}

	var writer *archive.Writer
	if dir := strings.TrimSpace(*archiveDir); dir != "" {
		writer = archive.NewWriter(dir, *runsPerFlush, logger)
		db := stats.Open([]string{dir}, *statsRefresh, logger)
		defer db.Close()
		cfg.Recorder = writer
		cfg.Stats = db
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.New(cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		logger.Info("shutdown requested")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("listening", "addr", *listen, "scores", *scorePath, "archive", *archiveDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}

	if writer != nil {
		logger.Info("archive closed", "runs", writer.Close())
	}
}
