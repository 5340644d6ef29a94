package archive

import (
	"log/slog"
	"sync"

	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/logging"
)

// Writer batches finished runs in the background and flushes a Parquet file
// every runsPerFlush runs and once more on Close.
//
// It satisfies engine.RunRecorder.
type Writer struct {
	outDir       string
	runsPerFlush int
	log          *slog.Logger

	in   chan RunRow
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int

	// written belongs to the loop until done is closed.
	written int
}

func NewWriter(outDir string, runsPerFlush int, log *slog.Logger) *Writer {
	if runsPerFlush <= 0 {
		runsPerFlush = 50
	}
	if log == nil {
		log = logging.Discard()
	}
	w := &Writer{
		outDir:       outDir,
		runsPerFlush: runsPerFlush,
		log:          log,
		in:           make(chan RunRow, runsPerFlush*4),
		done:         make(chan struct{}),
	}
	go w.loop()
	return w
}

// Record queues a run without blocking. A full queue drops the run.
func (w *Writer) Record(s game.RunSummary) {
	row := RowFromSummary(s)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.in <- row:
	default:
		w.dropped++
		w.log.Warn("archive queue full; run dropped", "run", s.RunID)
	}
}

// Close flushes pending runs and waits for the writer to finish. It returns
// the number of runs written to disk.
func (w *Writer) Close() int {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.in)
	}
	w.mu.Unlock()

	<-w.done
	return w.written
}

// Dropped reports how many runs were lost to a full queue.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *Writer) loop() {
	defer close(w.done)

	pending := make([]RunRow, 0, w.runsPerFlush)
	for row := range w.in {
		pending = append(pending, row)
		if len(pending) < w.runsPerFlush {
			continue
		}
		w.flush(pending)
		pending = pending[:0]
	}
	if len(pending) > 0 {
		w.flush(pending)
	}
}

func (w *Writer) flush(rows []RunRow) {
	outPath, err := WriteBatchAtomic(w.outDir, rows)
	if err != nil {
		w.log.Error("parquet flush failed", "runs", len(rows), "err", err)
		return
	}
	w.written += len(rows)
	w.log.Info("parquet flush ok", "path", outPath, "runs", len(rows))
}
