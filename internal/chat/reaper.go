package chat

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default periods for the reaper loops.
const (
	DefaultSweepInterval = 30 * time.Second
	DefaultStatsInterval = 5 * time.Minute
)

// Reaper periodically cleans up connections whose socket is no longer open
// and reports aggregate statistics.
type Reaper struct {
	registry      *Registry
	router        *Router
	sweepInterval time.Duration
	statsInterval time.Duration
	logger        *slog.Logger
}

// NewReaper creates a reaper. Non-positive intervals fall back to the
// defaults.
func NewReaper(registry *Registry, router *Router, sweepInterval, statsInterval time.Duration, logger *slog.Logger) *Reaper {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if statsInterval <= 0 {
		statsInterval = DefaultStatsInterval
	}
	return &Reaper{
		registry:      registry,
		router:        router,
		sweepInterval: sweepInterval,
		statsInterval: statsInterval,
		logger:        logger.With(slog.String("component", "reaper")),
	}
}

// Run blocks until ctx is cancelled, sweeping and reporting on their
// respective periods.
func (r *Reaper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.every(ctx, r.sweepInterval, func() { r.Sweep() })
		return nil
	})
	g.Go(func() error {
		r.every(ctx, r.statsInterval, r.Report)
		return nil
	})
	r.logger.Info("reaper started",
		slog.Duration("sweepInterval", r.sweepInterval),
		slog.Duration("statsInterval", r.statsInterval))
	err := g.Wait()
	r.logger.Info("reaper stopped")
	return err
}

func (r *Reaper) every(ctx context.Context, period time.Duration, fn func()) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Sweep cleans up every registered connection whose socket is not open and
// returns how many were removed. It iterates a snapshot, so connections
// registered during the sweep are left for the next one.
func (r *Reaper) Sweep() int {
	cleaned := 0
	for _, conn := range r.registry.Snapshot() {
		if conn.Socket.Open() {
			continue
		}
		if r.router.Cleanup(conn.ID) {
			cleaned++
		}
	}
	if cleaned > 0 {
		r.logger.Info("cleaned up inactive connections", slog.Int("count", cleaned))
	}
	return cleaned
}

// Report logs the current connection and room statistics.
func (r *Reaper) Report() {
	stats := r.router.Stats()
	r.logger.Info("server statistics",
		slog.Int("connections", stats.Connections),
		slog.Int("rooms", len(stats.Rooms)))
	for _, room := range stats.Rooms {
		r.logger.Info("room statistics",
			slog.String("roomID", room.ID),
			slog.Int("members", room.Members),
			slog.Int64("messages", room.Messages))
	}
}
