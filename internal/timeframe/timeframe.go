package timeframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts used for day buckets.
const (
	DateLayout  = "2006-01-02"
	LabelLayout = "02/01"
)

// DateStat is the count for one calendar day.
type DateStat struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RangeLabel names the period a Range was built from.
type RangeLabel string

const (
	RangeLabelLast7Days  RangeLabel = "last_7_days"
	RangeLabelLast30Days RangeLabel = "last_30_days"
	RangeLabelLast60Days RangeLabel = "last_60_days"
	RangeLabelLast90Days RangeLabel = "last_90_days"
	RangeLabelCustom     RangeLabel = "custom"
)

// PresetDays maps each preset label to the number of days it covers.
var PresetDays = map[RangeLabel]int{
	RangeLabelLast7Days:  7,
	RangeLabelLast30Days: 30,
	RangeLabelLast60Days: 60,
	RangeLabelLast90Days: 90,
}

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// Range is an inclusive span of whole calendar days in Loc.
// From is midnight of the first day and To is the last instant of the final day.
type Range struct {
	From  time.Time
	To    time.Time
	Label RangeLabel
	Loc   *time.Location
}

// NewRange builds the range covering every calendar day from the day of from
// to the day of to, both inclusive, in loc.
func NewRange(from, to time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := StartOfDay(from, loc)
	end := EndOfDay(to, loc)
	if start.After(end) {
		return Range{}, fmt.Errorf("from date %s is after to date %s",
			start.Format(DateLayout), end.Format(DateLayout))
	}
	return Range{From: start, To: end, Label: RangeLabelCustom, Loc: loc}, nil
}

// LastDays returns the range of the given number of days ending today.
func LastDays(now time.Time, days int, loc *time.Location) Range {
	if loc == nil {
		loc = time.UTC
	}
	if days < 1 {
		days = 1
	}
	today := StartOfDay(now, loc)
	start := time.Date(today.Year(), today.Month(), today.Day()-(days-1), 0, 0, 0, 0, loc)

	label := RangeLabelCustom
	for l, n := range PresetDays {
		if n == days {
			label = l
		}
	}
	return Range{From: start, To: EndOfDay(today, loc), Label: label, Loc: loc}
}

// Today returns the range covering the current calendar day.
func Today(now time.Time, loc *time.Location) Range {
	r := LastDays(now, 1, loc)
	r.Label = RangeLabelCustom
	return r
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, loc)
}

// Days lists midnight of every day in the range, in order.
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.From; !d.After(r.To); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, r.Loc) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t falls within the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// FromUTC returns the start of the range in UTC, the form timestamps are stored in.
func (r Range) FromUTC() time.Time {
	return r.From.UTC()
}

// ToUTC returns the end of the range in UTC.
func (r Range) ToUTC() time.Time {
	return r.To.UTC()
}

// FromDate formats the first day as YYYY-MM-DD.
func (r Range) FromDate() string {
	return r.From.Format(DateLayout)
}

// ToDate formats the last day as YYYY-MM-DD.
func (r Range) ToDate() string {
	return r.To.Format(DateLayout)
}

// Key identifies the range for caching.
func (r Range) Key() string {
	return r.FromDate() + "|" + r.ToDate() + "|" + r.Loc.String()
}

// ParseKey rebuilds the range identified by a Key.
func ParseKey(key string) (Range, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		return Range{}, fmt.Errorf("invalid range key %q", key)
	}
	loc, err := time.LoadLocation(parts[2])
	if err != nil {
		return Range{}, fmt.Errorf("invalid range key %q: %w", key, err)
	}
	from, err := time.ParseInLocation(DateLayout, parts[0], loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range key %q: %w", key, err)
	}
	to, err := time.ParseInLocation(DateLayout, parts[1], loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range key %q: %w", key, err)
	}
	return NewRange(from, to, loc)
}

// Label formats t's calendar day in loc as dd/MM.
func Label(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LabelLayout)
}

// ParseLabel splits a dd/MM label into its day and month.
func ParseLabel(label string) (day, month int, err error) {
	parts := strings.Split(label, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid day label %q", label)
	}
	day, err = strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("invalid day in label %q", label)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month in label %q", label)
	}
	return day, month, nil
}

// BucketByDay zero-fills one entry per day of r and counts rows into the day
// their timestamp falls on. When key is nil every row counts once; otherwise
// each day counts the distinct non-empty keys seen on it. Rows outside r are ignored.
func BucketByDay[T any](r Range, rows []T, at func(T) time.Time, key func(T) string) []DateStat {
	days := r.Days()
	stats := make([]DateStat, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		date := d.Format(DateLayout)
		stats[i] = DateStat{Date: date, Label: d.Format(LabelLayout)}
		index[date] = i
	}

	var seen []map[string]struct{}
	if key != nil {
		seen = make([]map[string]struct{}, len(days))
	}

	for _, row := range rows {
		i, ok := index[at(row).In(r.Loc).Format(DateLayout)]
		if !ok {
			continue
		}
		if key == nil {
			stats[i].Count++
			continue
		}
		k := key(row)
		if k == "" {
			continue
		}
		if seen[i] == nil {
			seen[i] = make(map[string]struct{})
		}
		if _, dup := seen[i][k]; dup {
			continue
		}
		seen[i][k] = struct{}{}
		stats[i].Count++
	}

	return stats
}
