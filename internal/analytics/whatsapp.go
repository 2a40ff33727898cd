package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"vitrine/internal/events"
	"vitrine/internal/timeframe"
)

// CountWhatsAppClicks returns the number of clicks in r.
func CountWhatsAppClicks(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	var count int64
	if err := inRange(db.WithContext(ctx).Model(&events.WhatsAppClick{}), r).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting whatsapp clicks: %w", err)
	}
	return count, nil
}

// TodayWhatsAppClicks returns the clicks recorded since midnight in loc.
func TodayWhatsAppClicks(ctx context.Context, db *gorm.DB, now time.Time, loc *time.Location) (int64, error) {
	return CountWhatsAppClicks(ctx, db, timeframe.Today(now, loc))
}

// WhatsAppClicksByDay returns clicks per calendar day, one entry per day of r.
func WhatsAppClicksByDay(ctx context.Context, db *gorm.DB, r timeframe.Range) ([]timeframe.DateStat, error) {
	var rows []timedKey
	err := inRange(db.WithContext(ctx).Model(&events.WhatsAppClick{}), r).
		Select("created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching whatsapp clicks by day: %w", err)
	}
	return timeframe.BucketByDay(r, rows, timedKeyAt, nil), nil
}

// WhatsAppClicksBySource groups clicks in r by source, most clicked first.
// Blank sources are reported as "unknown".
func WhatsAppClicksBySource(ctx context.Context, db *gorm.DB, r timeframe.Range) ([]SourceCount, error) {
	var sources []SourceCount
	err := inRange(db.WithContext(ctx).Model(&events.WhatsAppClick{}), r).
		Select("COALESCE(NULLIF(TRIM(source), ''), ?) AS source, COUNT(*) AS clicks", events.UnknownSource).
		Group("1").
		Order("clicks DESC, source ASC").
		Scan(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching whatsapp clicks by source: %w", err)
	}

	for i := range sources {
		sources[i].Label = SourceLabel(sources[i].Source)
	}
	return sources, nil
}

// SourceLabel turns a source tag such as "floating_button" into "Floating Button".
func SourceLabel(source string) string {
	if source == events.UnknownSource {
		return "Desconhecido"
	}
	words := strings.NewReplacer("_", " ", "-", " ").Replace(source)
	return cases.Title(language.BrazilianPortuguese).String(strings.Join(strings.Fields(words), " "))
}
