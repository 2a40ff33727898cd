// Package dashboard composes the independent aggregation queries into the
// admin analytics view.
package dashboard

import (
	"math"
	"sort"
	"strconv"

	"vitrine/internal/timeframe"
)

// SeriesPoint aligns sessions and WhatsApp clicks on one day.
type SeriesPoint struct {
	Date     string `json:"date"`
	ISODate  string `json:"isoDate,omitempty"`
	Sessions int    `json:"sessions"`
	Clicks   int    `json:"clicks"`
}

// MergeSeries joins the two daily series by day. Stats carrying an ISO date are
// matched on it, so ranges spanning a full year keep both ends; bare labels fall
// back to matching on dd/MM. Days present in only one series get 0 for the other
// side. Points are ordered chronologically.
func MergeSeries(sessions, clicks []timeframe.DateStat) []SeriesPoint {
	byDate := make(map[string]*SeriesPoint, len(sessions))
	byLabel := make(map[string]*SeriesPoint, len(sessions))
	var points []*SeriesPoint

	point := func(stat timeframe.DateStat) *SeriesPoint {
		if stat.Date != "" {
			if p, ok := byDate[stat.Date]; ok {
				return p
			}
			if p, ok := byLabel[stat.Label]; ok && p.ISODate == "" {
				p.ISODate = stat.Date
				byDate[stat.Date] = p
				return p
			}
		} else if p, ok := byLabel[stat.Label]; ok {
			return p
		}

		p := &SeriesPoint{Date: stat.Label, ISODate: stat.Date}
		points = append(points, p)
		if stat.Date != "" {
			byDate[stat.Date] = p
		}
		if _, ok := byLabel[stat.Label]; !ok {
			byLabel[stat.Label] = p
		}
		return p
	}

	for _, stat := range sessions {
		point(stat).Sessions += stat.Count
	}
	for _, stat := range clicks {
		point(stat).Clicks += stat.Count
	}

	sort.SliceStable(points, func(i, j int) bool {
		return chronological(points[i], points[j])
	})

	merged := make([]SeriesPoint, len(points))
	for i, p := range points {
		merged[i] = *p
	}
	return merged
}

func chronological(a, b *SeriesPoint) bool {
	if a.ISODate != "" && b.ISODate != "" {
		return a.ISODate < b.ISODate
	}

	dayA, monthA, errA := timeframe.ParseLabel(a.Date)
	dayB, monthB, errB := timeframe.ParseLabel(b.Date)
	switch {
	case errA != nil && errB != nil:
		return a.Date < b.Date
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	if monthA != monthB {
		return monthA < monthB
	}
	return dayA < dayB
}

// PagesPerSession formats views/sessions with one decimal, or "0" without sessions.
func PagesPerSession(views, sessions int64) string {
	if sessions == 0 {
		return "0"
	}
	return strconv.FormatFloat(roundOneDecimal(float64(views)/float64(sessions)), 'f', 1, 64)
}

// ConversionRate is the percentage of sessions that produced a lead, with one decimal.
func ConversionRate(leads, sessions int64) float64 {
	if sessions == 0 {
		return 0
	}
	return roundOneDecimal(float64(leads) / float64(sessions) * 100)
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
