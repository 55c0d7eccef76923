package app

import (
	"context"
	"log/slog"
	"time"

	"tradeapt/internal/domain/service"
)

// DefaultSweepInterval is how often the scheduler re-evaluates pending
// orders and active alerts when no interval is configured.
const DefaultSweepInterval = 10 * time.Second

// Scheduler is the single background loop driving both engines: each tick
// sweeps active alerts, then pending orders. A failure inside one tick is
// caught and logged; the loop itself never dies.
type Scheduler struct {
	alerts   *service.AlertEngine
	trades   *service.TradeEngine
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler sweeping on the given interval.
func NewScheduler(alerts *service.AlertEngine, trades *service.TradeEngine, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{
		alerts:   alerts,
		trades:   trades,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval. In-flight
// sweep work finishes before the loop observes cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("background scheduler started",
		slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("background scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep pass over both engines.
func (s *Scheduler) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panicked", slog.Any("panic", r))
		}
	}()

	triggered := s.alerts.Sweep(ctx)
	if len(triggered) > 0 {
		s.logger.Info("alerts triggered", slog.Int("count", len(triggered)))
	}

	executed := s.trades.SweepPending(ctx)
	if len(executed) > 0 {
		s.logger.Info("pending trades executed", slog.Int("count", len(executed)))
	}
}
