package seeder

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"vitrine/internal/gateway"
	"vitrine/internal/tracker"
	"vitrine/internal/visitors"
)

// SimulateConfig describes the browsing traffic sent by Simulate.
type SimulateConfig struct {
	Visitors    int
	Concurrency int
	// ClickChance is the probability that a visitor clicks a WhatsApp link.
	ClickChance float64
	// ReloadChance is the probability that a visitor reloads the landing page.
	ReloadChance float64
	// AdminChance is the probability that a visitor ends on an admin page.
	AdminChance float64
	Seed        uint64
}

// SimulateStats counts what the trackers sent and skipped.
type SimulateStats struct {
	Visitors  int64
	PageViews int64
	Skipped   int64
	Clicks    int64
}

// Simulate runs one tracker per visitor against invoker, the way browsers on the
// public site would, and waits for every event to be sent.
func Simulate(ctx context.Context, invoker gateway.Invoker, logger *slog.Logger, cfg SimulateConfig) SimulateStats {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	var stats SimulateStats
	visits := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range visits {
				rng := rand.New(rand.NewPCG(cfg.Seed, uint64(n)))
				visit(ctx, invoker, logger, cfg, rng, &stats)
			}
		}()
	}

loop:
	for n := 0; n < cfg.Visitors && ctx.Err() == nil; n++ {
		select {
		case <-ctx.Done():
			break loop
		case visits <- n:
		}
	}
	close(visits)
	wg.Wait()

	return stats
}

func visit(ctx context.Context, invoker gateway.Invoker, logger *slog.Logger, cfg SimulateConfig, rng *rand.Rand, stats *SimulateStats) {
	assigner := visitors.NewAssigner(visitors.NewMemoryStorage(), visitors.NewMemoryStorage())
	tr := tracker.New(invoker, assigner, logger,
		tracker.WithUserAgent(userAgents[rng.IntN(len(userAgents))]))
	defer tr.Wait()

	atomic.AddInt64(&stats.Visitors, 1)
	navigate := func(path, referrer string) {
		if tr.Navigate(ctx, path, referrer) {
			atomic.AddInt64(&stats.PageViews, 1)
		} else {
			atomic.AddInt64(&stats.Skipped, 1)
		}
	}

	journey := journeyTemplates[rng.IntN(len(journeyTemplates))]
	navigate(journey[0], referrers[rng.IntN(len(referrers))])
	if rng.Float64() < cfg.ReloadChance {
		navigate(journey[0], "")
	}
	for _, path := range journey[1:] {
		navigate(path, "")
	}
	if rng.Float64() < cfg.AdminChance {
		navigate("/admin/analytics", "")
	}

	if rng.Float64() < cfg.ClickChance {
		tr.TrackWhatsAppClick(ctx, clickSources[rng.IntN(len(clickSources))])
		atomic.AddInt64(&stats.Clicks, 1)
	}
}
