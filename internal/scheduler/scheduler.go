package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Fetcher defines the aggregation operations the scheduler drives.
type Fetcher interface {
	FetchAll(ctx context.Context) (int, error)
	CheckAllSourcesHealth(ctx context.Context) (bool, error)
}

type Scheduler struct {
	fetcher        Fetcher
	fetchInterval  time.Duration
	healthInterval time.Duration
	logger         *slog.Logger
}

func NewScheduler(fetcher Fetcher, fetchInterval, healthInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		fetcher:        fetcher,
		fetchInterval:  fetchInterval,
		healthInterval: healthInterval,
		logger:         logger,
	}
}

// Start runs the fetch and health loops until the context is canceled.
// The first fetch happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"fetch_interval", s.fetchInterval,
		"health_interval", s.healthInterval,
	)

	s.runFetch(ctx)

	fetchTicker := time.NewTicker(s.fetchInterval)
	defer fetchTicker.Stop()

	healthTicker := time.NewTicker(s.healthInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-fetchTicker.C:
			s.runFetch(ctx)
		case <-healthTicker.C:
			s.runHealthCheck(ctx)
		}
	}
}

func (s *Scheduler) runFetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.fetcher.FetchAll(fetchCtx); err != nil {
		s.logger.Error("scheduled fetch failed", "error", err)
	}
}

func (s *Scheduler) runHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	healthy, err := s.fetcher.CheckAllSourcesHealth(checkCtx)
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		return
	}
	if !healthy {
		s.logger.Warn("one or more sources are stale")
	}
}
