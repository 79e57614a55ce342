package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Releaser is implemented by the interview orchestrator
type Releaser interface {
	ReleaseIdle(maxIdle time.Duration) []string
}

// Sweeper periodically releases runtimes whose clients went away and
// never came back. Released sessions stay resumable from storage; this
// only reclaims the in-memory side.
type Sweeper struct {
	releaser Releaser
	interval time.Duration
	maxIdle  time.Duration
}

// NewSweeper creates a new idle-session sweeper
func NewSweeper(releaser Releaser, interval, maxIdle time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxIdle <= 0 {
		maxIdle = 15 * time.Minute
	}

	return &Sweeper{
		releaser: releaser,
		interval: interval,
		maxIdle:  maxIdle,
	}
}

// Start begins the sweeper in a goroutine
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// run is the main loop for the sweeper
func (s *Sweeper) run(ctx context.Context) {
	slog.Info("idle-session sweeper started", "interval", s.interval, "max_idle", s.maxIdle)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("idle-session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep releases idle runtimes
func (s *Sweeper) sweep() {
	slog.Debug("running sweep cycle")

	released := s.releaser.ReleaseIdle(s.maxIdle)
	if len(released) == 0 {
		slog.Debug("no idle sessions found")
		return
	}

	slog.Info("released idle sessions", "count", len(released))
	for _, id := range released {
		slog.Debug("idle session released", "session_id", id)
	}
}
