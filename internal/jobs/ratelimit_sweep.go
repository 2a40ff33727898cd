package jobs

import (
	"context"
	"log/slog"
)

// Sweeper is a rate limiter holding per-client windows in memory.
type Sweeper interface {
	Sweep() int
}

// RateLimitSweepJob evicts expired rate limit windows.
type RateLimitSweepJob struct {
	sweepers []Sweeper
	logger   *slog.Logger
}

func NewRateLimitSweepJob(logger *slog.Logger, sweepers ...Sweeper) *RateLimitSweepJob {
	return &RateLimitSweepJob{sweepers: sweepers, logger: logger}
}

func (j *RateLimitSweepJob) Name() string { return "ratelimit_sweep" }

func (j *RateLimitSweepJob) Run(ctx context.Context) error {
	removed := 0
	for _, s := range j.sweepers {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed += s.Sweep()
	}
	if removed > 0 {
		j.logger.Debug("Evicted expired rate limit windows", slog.Int("removed", removed))
	}
	return nil
}
