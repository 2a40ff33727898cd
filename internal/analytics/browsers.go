package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mssola/useragent"
	"gorm.io/gorm"

	"vitrine/internal/events"
	"vitrine/internal/timeframe"
)

// UnknownBrowser groups sessions whose user agent is missing or unrecognised.
const UnknownBrowser = "Outro"

// TopBrowsers counts distinct sessions per browser family in r, skipping crawlers.
func TopBrowsers(ctx context.Context, db *gorm.DB, r timeframe.Range, limit int) ([]BrowserCount, error) {
	var rows []struct {
		SessionID string
		UserAgent *string
	}
	err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Select("DISTINCT session_id, user_agent").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching user agents: %w", err)
	}

	sessions := make(map[string]map[string]struct{})
	for _, row := range rows {
		browser := UnknownBrowser
		if row.UserAgent != nil {
			name, isBot := BrowserName(*row.UserAgent)
			if isBot {
				continue
			}
			browser = name
		}
		if sessions[browser] == nil {
			sessions[browser] = make(map[string]struct{})
		}
		sessions[browser][row.SessionID] = struct{}{}
	}

	counts := make([]BrowserCount, 0, len(sessions))
	for browser, ids := range sessions {
		counts = append(counts, BrowserCount{Browser: browser, Sessions: int64(len(ids))})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Sessions != counts[j].Sessions {
			return counts[i].Sessions > counts[j].Sessions
		}
		return counts[i].Browser < counts[j].Browser
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// BrowserName returns the normalised browser family for ua and whether ua is a crawler.
func BrowserName(ua string) (string, bool) {
	if strings.TrimSpace(ua) == "" {
		return UnknownBrowser, false
	}

	parsed := useragent.New(ua)
	if parsed.Bot() {
		return "", true
	}

	name, _ := parsed.Browser()
	switch strings.ToLower(name) {
	case "chrome", "google chrome", "chromium":
		return "Chrome", false
	case "firefox", "mozilla firefox":
		return "Firefox", false
	case "safari", "mobile safari":
		return "Safari", false
	case "edge", "microsoft edge":
		return "Edge", false
	case "opera", "opera mini":
		return "Opera", false
	case "samsung browser", "samsungbrowser":
		return "Samsung Browser", false
	case "":
		return UnknownBrowser, false
	}
	return name, false
}
