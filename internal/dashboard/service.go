package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"gorm.io/gorm"

	"vitrine/internal/analytics"
	"vitrine/internal/leads"
	"vitrine/internal/metrics"
	"vitrine/internal/pkg/async"
	"vitrine/internal/timeframe"
)

// Query names, also reported in Dashboard.Failed.
const (
	QuerySessions        = "sessions"
	QueryVisitors        = "visitors"
	QueryPageViews       = "pageViews"
	QueryTodaySessions   = "todaySessions"
	QuerySessionsByDay   = "sessionsByDay"
	QueryTopPages        = "topPages"
	QueryWhatsAppTotal   = "whatsappTotal"
	QueryWhatsAppToday   = "whatsappToday"
	QueryWhatsAppByDay   = "whatsappByDay"
	QueryWhatsAppSources = "whatsappBySource"
	QueryLeads           = "leads"
	QueryBrowsers        = "browsers"
	QueryReferrers       = "referrers"
)

const (
	topBrowsersLimit  = 5
	topReferrersLimit = 5
)

type Totals struct {
	Sessions  int64 `json:"sessions"`
	Visitors  int64 `json:"visitors"`
	PageViews int64 `json:"pageViews"`
}

type WhatsApp struct {
	Total    int64                   `json:"total"`
	Today    int64                   `json:"today"`
	ByDay    []timeframe.DateStat    `json:"byDay"`
	BySource []analytics.SourceCount `json:"bySource"`
}

// Dashboard is the composed analytics view for one range.
type Dashboard struct {
	From            string                    `json:"from"`
	To              string                    `json:"to"`
	Totals          Totals                    `json:"totals"`
	TodaySessions   int64                     `json:"todaySessions"`
	PagesPerSession string                    `json:"pagesPerSession"`
	LeadCount       int64                     `json:"leadCount"`
	ConversionRate  float64                   `json:"conversionRate"`
	SessionsByDay   []timeframe.DateStat      `json:"sessionsByDay"`
	TopPages        []analytics.PageCount     `json:"topPages"`
	WhatsApp        WhatsApp                  `json:"whatsapp"`
	Series          []SeriesPoint             `json:"series"`
	Browsers        []analytics.BrowserCount  `json:"browsers"`
	Referrers       []analytics.ReferrerCount `json:"referrers"`
	Failed          []string                  `json:"failed,omitempty"`
}

// Snapshot reports the queries still in flight across all builds.
type Snapshot struct {
	IsLoading bool     `json:"isLoading"`
	Pending   []string `json:"pending"`
}

// Service builds dashboards and caches them per range.
type Service struct {
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
	pool    *async.Pool
	now     func() time.Time
	cache   *cache.Cache[string, *Dashboard]

	mu      sync.Mutex
	pending map[string]int
}

type Option func(*Service)

// WithClock overrides the clock used for the "today" figures.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records build durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(db *gorm.DB, logger *slog.Logger, cacheTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		db:      db,
		logger:  logger,
		pool:    async.NewPool(6),
		now:     time.Now,
		pending: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = cache.NewCache[string, *Dashboard](logger, cacheTTL, s.fetch)
	return s
}

func (s *Service) fetch(key string) (*Dashboard, error) {
	r, err := timeframe.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return s.Build(context.Background(), r), nil
}

// Get returns the cached dashboard for r, building it on a miss.
// A dashboard with failed queries is served once and not kept.
func (s *Service) Get(r timeframe.Range) (*Dashboard, error) {
	key := r.Key()
	d, err := s.cache.Get(key)
	if err != nil {
		return nil, err
	}
	if len(d.Failed) > 0 {
		s.cache.Remove(key)
	}
	return d, nil
}

// Invalidate drops every cached dashboard so the next Get refetches.
func (s *Service) Invalidate() {
	s.cache.Clear()
}

// Snapshot returns the combined loading state of in-flight queries.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Pending: []string{}}
	for name, n := range s.pending {
		if n > 0 {
			snap.Pending = append(snap.Pending, name)
		}
	}
	sort.Strings(snap.Pending)
	snap.IsLoading = len(snap.Pending) > 0
	return snap
}

func (s *Service) setLoading(name string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading {
		s.pending[name]++
		return
	}
	s.pending[name]--
	if s.pending[name] <= 0 {
		delete(s.pending, name)
	}
}

// Build runs every query for r concurrently and composes the result.
// A failed query contributes its zero value and is listed in Failed.
func (s *Service) Build(ctx context.Context, r timeframe.Range) *Dashboard {
	start := time.Now()
	now := s.now()
	db := s.db

	tasks := []async.Task{
		{Name: QuerySessions, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.CountSessions(ctx, db, r)
		}},
		{Name: QueryVisitors, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.CountVisitors(ctx, db, r)
		}},
		{Name: QueryPageViews, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.CountPageViews(ctx, db, r)
		}},
		{Name: QueryTodaySessions, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.TodaySessions(ctx, db, now, r.Loc)
		}},
		{Name: QuerySessionsByDay, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.SessionsByDay(ctx, db, r)
		}},
		{Name: QueryTopPages, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.TopPages(ctx, db, r, analytics.DefaultTopPagesLimit)
		}},
		{Name: QueryWhatsAppTotal, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.CountWhatsAppClicks(ctx, db, r)
		}},
		{Name: QueryWhatsAppToday, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.TodayWhatsAppClicks(ctx, db, now, r.Loc)
		}},
		{Name: QueryWhatsAppByDay, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.WhatsAppClicksByDay(ctx, db, r)
		}},
		{Name: QueryWhatsAppSources, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.WhatsAppClicksBySource(ctx, db, r)
		}},
		{Name: QueryLeads, Execute: func(ctx context.Context) (interface{}, error) {
			return leads.CountInRange(ctx, db, r)
		}},
		{Name: QueryBrowsers, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.TopBrowsers(ctx, db, r, topBrowsersLimit)
		}},
		{Name: QueryReferrers, Execute: func(ctx context.Context) (interface{}, error) {
			return analytics.TopReferrers(ctx, db, r, topReferrersLimit)
		}},
	}

	for _, task := range tasks {
		s.setLoading(task.Name, true)
	}

	results := s.pool.Execute(ctx, tasks, func(result async.Result) {
		s.setLoading(result.Name, false)
	})

	var failed []string
	for _, task := range tasks {
		if err := results[task.Name].Err; err != nil {
			s.logger.Error("Dashboard query failed",
				slog.String("query", task.Name),
				slog.String("range", r.Key()),
				slog.Any("error", err))
			failed = append(failed, task.Name)
		}
	}

	d := &Dashboard{
		From: r.FromDate(),
		To:   r.ToDate(),
		Totals: Totals{
			Sessions:  valueOr[int64](results, QuerySessions),
			Visitors:  valueOr[int64](results, QueryVisitors),
			PageViews: valueOr[int64](results, QueryPageViews),
		},
		TodaySessions: valueOr[int64](results, QueryTodaySessions),
		LeadCount:     valueOr[int64](results, QueryLeads),
		SessionsByDay: seriesOrZero(results, QuerySessionsByDay, r),
		TopPages:      nonNil(valueOr[[]analytics.PageCount](results, QueryTopPages)),
		WhatsApp: WhatsApp{
			Total:    valueOr[int64](results, QueryWhatsAppTotal),
			Today:    valueOr[int64](results, QueryWhatsAppToday),
			ByDay:    seriesOrZero(results, QueryWhatsAppByDay, r),
			BySource: nonNil(valueOr[[]analytics.SourceCount](results, QueryWhatsAppSources)),
		},
		Browsers:  nonNil(valueOr[[]analytics.BrowserCount](results, QueryBrowsers)),
		Referrers: nonNil(valueOr[[]analytics.ReferrerCount](results, QueryReferrers)),
		Failed:    failed,
	}
	d.PagesPerSession = PagesPerSession(d.Totals.PageViews, d.Totals.Sessions)
	d.ConversionRate = ConversionRate(d.LeadCount, d.Totals.Sessions)
	d.Series = MergeSeries(d.SessionsByDay, d.WhatsApp.ByDay)

	s.metrics.ObserveDashboard(time.Since(start))
	return d
}

func valueOr[T any](results map[string]async.Result, name string) T {
	var zero T
	result, ok := results[name]
	if !ok || result.Err != nil {
		return zero
	}
	v, ok := result.Data.(T)
	if !ok {
		return zero
	}
	return v
}

// seriesOrZero keeps the zero-filled shape of a daily series even when its query failed.
func seriesOrZero(results map[string]async.Result, name string, r timeframe.Range) []timeframe.DateStat {
	if series := valueOr[[]timeframe.DateStat](results, name); series != nil {
		return series
	}
	return timeframe.BucketByDay[struct{}](r, nil, nil, nil)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
