// Package v1 serves the public tracking functions and the privileged reset
// function under /functions/v1.
package v1

import (
	"time"

	"vitrine/internal/metrics"
	"vitrine/internal/ratelimit"
	"vitrine/internal/settings"
)

const (
	errInvalidBody     = "Invalid request body"
	errInvalidPath     = "Invalid path"
	errInvalidIdentity = "Invalid visitor or session ID"
	errServer          = "Server error"
	errRateLimited     = "Rate limit exceeded"
	errTrackClick      = "Failed to track click"
	errResetFailed     = "Failed to reset analytics"
)

// Functions holds what the function handlers share.
type Functions struct {
	PageViewLimiter ratelimit.Limiter
	WhatsAppLimiter ratelimit.Limiter
	Settings        *settings.Store
	Metrics         *metrics.Metrics
	// OnReset runs after a successful reset, e.g. to drop cached dashboards.
	OnReset func()
	Now     func() time.Time
}

func (f *Functions) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
