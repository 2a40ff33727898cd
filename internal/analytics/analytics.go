// Package analytics runs the read-only aggregation queries behind the dashboard.
// Every query takes an inclusive timeframe.Range and reads the event tables directly.
package analytics

import (
	"time"

	"gorm.io/gorm"

	"vitrine/internal/timeframe"
)

// DefaultTopPagesLimit is how many pages the dashboard ranks.
const DefaultTopPagesLimit = 5

// PageCount is a path with the number of views it received.
type PageCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// SourceCount is a WhatsApp click origin with its click total.
type SourceCount struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Clicks int64  `json:"clicks"`
}

// BrowserCount is a browser family with the number of sessions using it.
type BrowserCount struct {
	Browser  string `json:"browser"`
	Sessions int64  `json:"sessions"`
}

// Totals are all-time row counts, shown before a reset.
type Totals struct {
	PageViews      int64 `json:"pageViews"`
	WhatsAppClicks int64 `json:"whatsappClicks"`
}

// inRange restricts q to rows created within r.
func inRange(q *gorm.DB, r timeframe.Range) *gorm.DB {
	return q.Where("created_at >= ? AND created_at <= ?", r.FromUTC(), r.ToUTC())
}

type timedKey struct {
	CreatedAt time.Time
	Ident     string
}

func timedKeyAt(row timedKey) time.Time { return row.CreatedAt }

func timedKeyValue(row timedKey) string { return row.Ident }
