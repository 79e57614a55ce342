package interview

import (
	"sync"
	"time"
)

// questionTimer is the countdown clock for one open question. Each
// opened question gets a fresh handle; the runtime compares handle
// identity on every tick so a cancelled or replaced clock can never
// decrement the counter or fire expiry against a newer question.
//
// Expiry fires exactly once: the fired flag (guarded by the runtime
// mutex) suppresses duplicate signals even if ticks keep arriving after
// remaining hits zero.
type questionTimer struct {
	stop     chan struct{}
	stopOnce sync.Once
	fired    bool
}

func newQuestionTimer() *questionTimer {
	return &questionTimer{stop: make(chan struct{})}
}

// cancel stops the tick loop. Safe to call more than once.
func (t *questionTimer) cancel() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

// run drives the tick loop at the given interval until cancelled.
// onTick receives the handle so the owner can reject stale callbacks.
func (t *questionTimer) run(interval time.Duration, onTick func(*questionTimer)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			onTick(t)
		}
	}
}
