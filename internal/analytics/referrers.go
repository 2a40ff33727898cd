package analytics

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"vitrine/internal/events"
	"vitrine/internal/pkg/referrers"
	"vitrine/internal/timeframe"
)

// ReferrerCount is a traffic source with the number of sessions it brought.
type ReferrerCount struct {
	Source   string `json:"source"`
	Sessions int64  `json:"sessions"`
}

// TopReferrers counts distinct sessions per traffic source in r.
// A session counts once per source it carried a referrer from; sessions
// without any referrer count as referrers.Direct.
func TopReferrers(ctx context.Context, db *gorm.DB, r timeframe.Range, limit int) ([]ReferrerCount, error) {
	var rows []struct {
		SessionID string
		Referrer  *string
	}
	err := inRange(db.WithContext(ctx).Model(&events.PageView{}), r).
		Select("DISTINCT session_id, referrer").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching referrers: %w", err)
	}

	bySession := make(map[string]map[string]struct{})
	for _, row := range rows {
		if bySession[row.SessionID] == nil {
			bySession[row.SessionID] = make(map[string]struct{})
		}
		if row.Referrer == nil {
			continue
		}
		if source := referrers.Source(*row.Referrer); source != referrers.Direct {
			bySession[row.SessionID][source] = struct{}{}
		}
	}

	totals := make(map[string]int64)
	for _, sources := range bySession {
		if len(sources) == 0 {
			totals[referrers.Direct]++
			continue
		}
		for source := range sources {
			totals[source]++
		}
	}

	counts := make([]ReferrerCount, 0, len(totals))
	for source, n := range totals {
		counts = append(counts, ReferrerCount{Source: source, Sessions: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Sessions != counts[j].Sessions {
			return counts[i].Sessions > counts[j].Sessions
		}
		return counts[i].Source < counts[j].Source
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}
