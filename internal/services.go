package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	v1 "vitrine/api/v1"
	"vitrine/internal/auth"
	"vitrine/internal/config"
	"vitrine/internal/dashboard"
	"vitrine/internal/http"
	"vitrine/internal/jobs"
	"vitrine/internal/metrics"
	"vitrine/internal/ratelimit"
	"vitrine/internal/settings"
	"vitrine/internal/timeframe"
)

const redisKeyPrefix = "vitrine:ratelimit"

// Services holds the long-lived components shared by the routes and the background jobs.
type Services struct {
	Tokens    *auth.Tokens
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Settings  *settings.Store
	Dashboard *dashboard.Service
	Functions *v1.Functions
	Analytics *http.Analytics
	Scheduler *jobs.Scheduler

	redis *redis.Client
}

// NewServices builds every shared component from cfg.
func NewServices(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*Services, error) {
	s := &Services{
		Tokens:    auth.NewTokens(cfg.GetTokenSecret(), cfg.GetTokenTTL()),
		Registry:  prometheus.NewRegistry(),
		Settings:  settings.NewStore(db, logger),
		Scheduler: jobs.NewScheduler(logger),
	}

	if err := s.Settings.SetupDefaults(); err != nil {
		return nil, fmt.Errorf("failed to set up default settings: %w", err)
	}

	window := cfg.GetRateLimitWindow()
	pageViewPolicy := ratelimit.Policy{Max: cfg.PageViewRateLimit, Window: window}
	whatsAppPolicy := ratelimit.Policy{Max: cfg.WhatsAppRateLimit, Window: window}

	var pageViewLimiter, whatsAppLimiter ratelimit.Limiter
	trackedClients := func() int { return 0 }

	switch cfg.RateLimitBackend {
	case config.RateLimitRedis:
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = client
		pageViewLimiter = ratelimit.NewRedis(client, redisKeyPrefix, pageViewPolicy)
		whatsAppLimiter = ratelimit.NewRedis(client, redisKeyPrefix, whatsAppPolicy)
		logger.Info("Using redis rate limiter")
	default:
		pageViews := ratelimit.NewMemory(pageViewPolicy)
		clicks := ratelimit.NewMemory(whatsAppPolicy)
		pageViewLimiter, whatsAppLimiter = pageViews, clicks
		trackedClients = func() int { return pageViews.Len() + clicks.Len() }

		interval := time.Duration(cfg.JobIntervalSeconds) * time.Second
		s.Scheduler.Every(interval, jobs.NewRateLimitSweepJob(logger, pageViews, clicks))
	}

	m, err := metrics.New(s.Registry, trackedClients)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	s.Metrics = m
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.Dashboard = dashboard.NewService(db, logger, cfg.GetDashboardCacheTTL(), dashboard.WithMetrics(m))
	s.Analytics = &http.Analytics{
		Dashboard: s.Dashboard,
		Parser:    timeframe.NewParser(cfg.GetLocation()),
	}
	s.Functions = &v1.Functions{
		PageViewLimiter: pageViewLimiter,
		WhatsAppLimiter: whatsAppLimiter,
		Settings:        s.Settings,
		Metrics:         m,
		OnReset:         s.Dashboard.Invalidate,
	}

	return s, nil
}

// Close releases connections held by the services.
func (s *Services) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
