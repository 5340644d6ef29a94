package engine

import "time"

// runSchedule ticks the engine every interval until the run ends or stop is
// closed. The ticker is owned by this goroutine, so a speed-up resets it in
// place and no two ticks can overlap.
func (e *Engine) runSchedule(gen uint64, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		res, ok := e.tickGeneration(gen)
		if !ok || !res.Running {
			return
		}
		if res.Interval != interval {
			interval = res.Interval
			ticker.Reset(interval)
		}
	}
}
