package timeframe

import (
	"fmt"
	"time"
)

// MaxRangeDays bounds custom ranges so a single request cannot bucket years of days.
const MaxRangeDays = 366

type ParserParams struct {
	Period   string
	FromDate string
	ToDate   string
	Tz       string
}

type Parser struct {
	timeProvider TimeProvider
	defaultLoc   *time.Location
}

// NewParser creates a parser that falls back to defaultLoc when no zone is given.
func NewParser(defaultLoc *time.Location, timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Parser{timeProvider: provider, defaultLoc: defaultLoc}
}

// Parse resolves the request parameters to a Range. Explicit from/to dates
// win over a period; with neither, the last 30 days are used.
func (p *Parser) Parse(params ParserParams) (Range, error) {
	loc := p.defaultLoc
	if params.Tz != "" {
		l, err := time.LoadLocation(params.Tz)
		if err != nil {
			return Range{}, fmt.Errorf("error loading timezone: %w", err)
		}
		loc = l
	}
	now := p.timeProvider.Now(loc)

	if params.FromDate != "" || params.ToDate != "" {
		return p.parseCustom(params, now, loc)
	}

	if params.Period == "" {
		return LastDays(now, PresetDays[RangeLabelLast30Days], loc), nil
	}

	days, err := ParsePeriod(params.Period)
	if err != nil {
		return Range{}, err
	}
	return LastDays(now, days, loc), nil
}

// ParsePeriod accepts "7", "7d" or a preset label such as "last_7_days".
func ParsePeriod(period string) (int, error) {
	if days, ok := PresetDays[RangeLabel(period)]; ok {
		return days, nil
	}
	var days int
	if _, err := fmt.Sscanf(period, "%d", &days); err == nil {
		for _, n := range PresetDays {
			if n == days {
				return days, nil
			}
		}
	}
	return 0, fmt.Errorf("unsupported period %q", period)
}

func (p *Parser) parseCustom(params ParserParams, now time.Time, loc *time.Location) (Range, error) {
	from := now.AddDate(0, 0, -(PresetDays[RangeLabelLast30Days] - 1))
	to := now

	if params.FromDate != "" {
		d, err := time.ParseInLocation(DateLayout, params.FromDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid 'from' date: %w", err)
		}
		from = d
	}
	if params.ToDate != "" {
		d, err := time.ParseInLocation(DateLayout, params.ToDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid 'to' date: %w", err)
		}
		to = d
	}

	r, err := NewRange(from, to, loc)
	if err != nil {
		return Range{}, err
	}
	if len(r.Days()) > MaxRangeDays {
		return Range{}, fmt.Errorf("range exceeds %d days", MaxRangeDays)
	}
	return r, nil
}
