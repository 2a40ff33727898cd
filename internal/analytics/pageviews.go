package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/events"
	"vitrine/internal/timeframe"
)

// CountSessions returns the number of distinct sessions with a page view in r.
func CountSessions(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	return countDistinct(ctx, db, r, "session_id")
}

// CountVisitors returns the number of distinct visitors with a page view in r.
func CountVisitors(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	return countDistinct(ctx, db, r, "visitor_id")
}

// TodaySessions returns the distinct sessions seen since midnight in loc.
func TodaySessions(ctx context.Context, db *gorm.DB, now time.Time, loc *time.Location) (int64, error) {
	return countDistinct(ctx, db, timeframe.Today(now, loc), "session_id")
}

func countDistinct(ctx context.Context, db *gorm.DB, r timeframe.Range, column string) (int64, error) {
	var count int64
	q := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Distinct(column)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting distinct %s: %w", column, err)
	}
	return count, nil
}

// CountPageViews returns the number of page view rows in r.
func CountPageViews(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	var count int64
	if err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting page views: %w", err)
	}
	return count, nil
}

// SessionsByDay returns the distinct sessions per calendar day, one entry per day of r.
func SessionsByDay(ctx context.Context, db *gorm.DB, r timeframe.Range) ([]timeframe.DateStat, error) {
	var rows []timedKey
	err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Select("created_at, session_id AS ident").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching sessions by day: %w", err)
	}
	return timeframe.BucketByDay(r, rows, timedKeyAt, timedKeyValue), nil
}

// PageViewsByDay returns the page view rows per calendar day, one entry per day of r.
func PageViewsByDay(ctx context.Context, db *gorm.DB, r timeframe.Range) ([]timeframe.DateStat, error) {
	var rows []timedKey
	err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Select("created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching page views by day: %w", err)
	}
	return timeframe.BucketByDay(r, rows, timedKeyAt, nil), nil
}

// TopPages returns the most viewed paths in r, ties broken by path.
func TopPages(ctx context.Context, db *gorm.DB, r timeframe.Range, limit int) ([]PageCount, error) {
	if limit <= 0 {
		limit = DefaultTopPagesLimit
	}

	var pages []PageCount
	err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Select("path, COUNT(*) AS views").
		Group("path").
		Order("views DESC, path ASC").
		Limit(limit).
		Scan(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching top pages: %w", err)
	}
	return pages, nil
}

// EventTotals returns the all-time size of both event tables.
func EventTotals(ctx context.Context, db *gorm.DB) (Totals, error) {
	var totals Totals
	if err := db.WithContext(ctx).Model(&events.PageView{}).Count(&totals.PageViews).Error; err != nil {
		return Totals{}, fmt.Errorf("error counting page views: %w", err)
	}
	if err := db.WithContext(ctx).Model(&events.WhatsAppClick{}).Count(&totals.WhatsAppClicks).Error; err != nil {
		return Totals{}, fmt.Errorf("error counting whatsapp clicks: %w", err)
	}
	return totals, nil
}
