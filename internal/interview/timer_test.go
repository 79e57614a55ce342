package interview

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionTimerTicksUntilCancelled(t *testing.T) {
	var ticks atomic.Int64

	timer := newQuestionTimer()
	go timer.run(time.Millisecond, func(h *questionTimer) {
		assert.Same(t, timer, h)
		ticks.Add(1)
	})

	require.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, time.Second, time.Millisecond)

	timer.cancel()
	settled := ticks.Load()

	time.Sleep(20 * time.Millisecond)
	// A tick already in flight at cancel time may still land, nothing after
	assert.LessOrEqual(t, ticks.Load(), settled+1)
}

func TestQuestionTimerCancelIsIdempotent(t *testing.T) {
	timer := newQuestionTimer()
	go timer.run(time.Millisecond, func(*questionTimer) {})

	timer.cancel()
	timer.cancel() // must not panic
}
