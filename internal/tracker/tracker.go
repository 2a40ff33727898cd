// Package tracker observes navigation and reports page views and WhatsApp
// clicks to the ingestion functions without ever blocking the caller.
package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vitrine/internal/gateway"
	"vitrine/internal/visitors"
)

// DebounceWindow suppresses a repeat of the last tracked path inside this window.
const DebounceWindow = 2 * time.Second

const sendTimeout = 10 * time.Second

// debounceState remembers the last tracked transition.
type debounceState struct {
	lastPath string
	lastAt   time.Time
}

func (d *debounceState) shouldSkip(path string, now time.Time) bool {
	return d.lastPath == path && !d.lastAt.IsZero() && now.Sub(d.lastAt) < DebounceWindow
}

func (d *debounceState) record(path string, now time.Time) {
	d.lastPath = path
	d.lastAt = now
}

type pageViewBody struct {
	Path      string  `json:"path"`
	Referrer  *string `json:"referrer"`
	UserAgent string  `json:"user_agent"`
	VisitorID string  `json:"visitor_id"`
	SessionID string  `json:"session_id"`
}

type whatsAppClickBody struct {
	Source    string  `json:"source"`
	VisitorID string  `json:"visitor_id"`
	SessionID string  `json:"session_id"`
	PagePath  *string `json:"page_path"`
}

// Tracker reports navigation for one browser.
type Tracker struct {
	invoker     gateway.Invoker
	assigner    *visitors.Assigner
	logger      *slog.Logger
	adminPrefix string
	userAgent   string
	now         func() time.Time

	mu       sync.Mutex
	debounce debounceState
	wg       sync.WaitGroup
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithAdminPrefix changes the path prefix that is never tracked.
func WithAdminPrefix(prefix string) Option {
	return func(t *Tracker) { t.adminPrefix = prefix }
}

// WithUserAgent sets the user agent reported with page views.
func WithUserAgent(ua string) Option {
	return func(t *Tracker) { t.userAgent = ua }
}

func New(invoker gateway.Invoker, assigner *visitors.Assigner, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		invoker:     invoker,
		assigner:    assigner,
		logger:      logger,
		adminPrefix: "/admin",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Navigate handles one page transition and reports whether a page view was sent.
// Admin paths and debounced repeats are skipped.
func (t *Tracker) Navigate(ctx context.Context, path, referrer string) bool {
	if t.adminPrefix != "" && strings.HasPrefix(path, t.adminPrefix) {
		return false
	}

	t.mu.Lock()
	now := t.now()
	if t.debounce.shouldSkip(path, now) {
		t.mu.Unlock()
		t.logger.Debug("Skipping duplicate page view", slog.String("path", path))
		return false
	}
	t.debounce.record(path, now)
	t.mu.Unlock()

	id := t.assigner.Assign()
	body := pageViewBody{
		Path:      path,
		UserAgent: t.userAgent,
		VisitorID: id.VisitorID,
		SessionID: id.SessionID,
	}
	if referrer != "" {
		body.Referrer = &referrer
	}

	t.send(ctx, gateway.FunctionTrackPageView, body)
	return true
}

// TrackWhatsAppClick reports a click on a WhatsApp link from source.
func (t *Tracker) TrackWhatsAppClick(ctx context.Context, source string) {
	id := t.assigner.Assign()

	t.mu.Lock()
	lastPath := t.debounce.lastPath
	t.mu.Unlock()

	body := whatsAppClickBody{
		Source:    source,
		VisitorID: id.VisitorID,
		SessionID: id.SessionID,
	}
	if lastPath != "" {
		body.PagePath = &lastPath
	}

	t.send(ctx, gateway.FunctionTrackWhatsAppClick, body)
}

// send invokes the function in the background. Failures are logged and dropped.
func (t *Tracker) send(ctx context.Context, function string, body interface{}) {
	ctx = context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		if err := t.invoker.Invoke(ctx, function, body, nil); err != nil {
			t.logger.Warn("Failed to send tracking event",
				slog.String("function", function),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every event sent so far has completed.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
