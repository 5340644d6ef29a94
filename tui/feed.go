package tui

import "github.com/brensch/snekclassic/game"

// Feed turns the engine's frame callback into a channel the UI can wait on.
// When the UI falls behind the oldest queued frame is discarded, so the
// screen always catches up to the latest board.
type Feed struct {
	ch chan game.Snapshot
}

func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{ch: make(chan game.Snapshot, buffer)}
}

// Handle is an engine.FrameHandler.
func (f *Feed) Handle(s game.Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *Feed) Frames() <-chan game.Snapshot { return f.ch }
