package shared

import (
	"fmt"
	"slices"
	"time"
)

const (
	// DateLayout is the format layout for parsing date-times.
	DateLayout = "2006-01-02 15:04:05"
	// DayLayout is the format layout for parsing dates without a time component.
	DayLayout = "2006-01-02"
	// NewYorkLocation is the new york timezone name.
	NewYorkLocation = "America/New_York"

	day = time.Hour * 24
)

// Interval represents the duration covered by a single bar.
type Interval int

const (
	OneMinute Interval = iota
	TwoMinute
	FiveMinute
	FifteenMinute
	ThirtyMinute
	SixtyMinute
	OneDay
	OneWeek
	OneMonth
)

// Intervals lists all supported intervals.
var Intervals = []Interval{OneMinute, TwoMinute, FiveMinute, FifteenMinute, ThirtyMinute,
	SixtyMinute, OneDay, OneWeek, OneMonth}

// String stringifies the provided interval.
func (i Interval) String() string {
	switch i {
	case OneMinute:
		return "1m"
	case TwoMinute:
		return "2m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case ThirtyMinute:
		return "30m"
	case SixtyMinute:
		return "60m"
	case OneDay:
		return "1d"
	case OneWeek:
		return "1wk"
	case OneMonth:
		return "1mo"
	default:
		return "unknown"
	}
}

// ParseInterval parses the provided interval string.
func ParseInterval(s string) (Interval, error) {
	for _, interval := range Intervals {
		if interval.String() == s {
			return interval, nil
		}
	}

	return 0, fmt.Errorf("unknown interval '%s', available intervals: %v", s, Intervals)
}

// Intraday returns whether the interval is shorter than a day.
func (i Interval) Intraday() bool {
	return i < OneDay
}

// Lookback returns how far back bars are requested for the interval. A zero duration
// requests the full available history.
func (i Interval) Lookback() time.Duration {
	switch i {
	case TwoMinute, FiveMinute, FifteenMinute, ThirtyMinute:
		return day * 59
	case SixtyMinute:
		return day * 730
	default:
		return 0
	}
}

// Period represents the displayed span of a review.
type Period int

const (
	OneDayPeriod Period = iota
	FiveDayPeriod
	OneMonthPeriod
	SixMonthPeriod
	OneYearPeriod
	TwoYearPeriod
	FiveYearPeriod
	TenYearPeriod
)

// DefaultPeriod is the period used when none is requested.
const DefaultPeriod = OneYearPeriod

// Periods lists all supported periods.
var Periods = []Period{OneDayPeriod, FiveDayPeriod, OneMonthPeriod, SixMonthPeriod,
	OneYearPeriod, TwoYearPeriod, FiveYearPeriod, TenYearPeriod}

// String stringifies the provided period.
func (p Period) String() string {
	switch p {
	case OneDayPeriod:
		return "1d"
	case FiveDayPeriod:
		return "5d"
	case OneMonthPeriod:
		return "1mo"
	case SixMonthPeriod:
		return "6mo"
	case OneYearPeriod:
		return "1y"
	case TwoYearPeriod:
		return "2y"
	case FiveYearPeriod:
		return "5y"
	case TenYearPeriod:
		return "10y"
	default:
		return "unknown"
	}
}

// ParsePeriod parses the provided period string.
func ParsePeriod(s string) (Period, error) {
	for _, period := range Periods {
		if period.String() == s {
			return period, nil
		}
	}

	return 0, fmt.Errorf("unknown period '%s', available periods: %v", s, Periods)
}

// Duration returns the calendar span of the period.
func (p Period) Duration() time.Duration {
	switch p {
	case OneDayPeriod:
		return day
	case FiveDayPeriod:
		return day * 5
	case OneMonthPeriod:
		return day * 30
	case SixMonthPeriod:
		return day * 182
	case OneYearPeriod:
		return day * 365
	case TwoYearPeriod:
		return day * 730
	case FiveYearPeriod:
		return day * 1826
	case TenYearPeriod:
		return day * 3652
	default:
		return 0
	}
}

// Intervals returns the intervals allowed for the period, the first being the default.
func (p Period) Intervals() []Interval {
	switch p {
	case OneDayPeriod:
		return []Interval{OneMinute, TwoMinute, FiveMinute}
	case FiveDayPeriod:
		return []Interval{FiveMinute, FifteenMinute}
	case OneMonthPeriod:
		return []Interval{ThirtyMinute, SixtyMinute}
	case SixMonthPeriod:
		return []Interval{OneDay}
	case OneYearPeriod, TwoYearPeriod:
		return []Interval{OneDay, OneWeek}
	case FiveYearPeriod:
		return []Interval{OneWeek, OneMonth}
	case TenYearPeriod:
		return []Interval{OneMonth}
	default:
		return nil
	}
}

// DefaultInterval returns the default interval for the period.
func (p Period) DefaultInterval() Interval {
	intervals := p.Intervals()
	if len(intervals) == 0 {
		return OneDay
	}

	return intervals[0]
}

// ShowsCycles returns whether the period spans enough years for yearly cycle overlays.
func (p Period) ShowsCycles() bool {
	return p == FiveYearPeriod || p == TenYearPeriod
}

// ValidateRequest asserts the provided interval is allowed for the period.
func ValidateRequest(period Period, interval Interval) error {
	allowed := period.Intervals()
	if !slices.Contains(allowed, interval) {
		return fmt.Errorf("interval %s not available for period %s, available intervals: %v",
			interval, period, allowed)
	}

	return nil
}

// ParseRequest parses and validates a period and interval pair. An empty period selects the
// default period and an empty interval selects the period's default interval.
func ParseRequest(period string, interval string) (Period, Interval, error) {
	p := DefaultPeriod
	if period != "" {
		var err error
		p, err = ParsePeriod(period)
		if err != nil {
			return 0, 0, err
		}
	}

	i := p.DefaultInterval()
	if interval != "" {
		var err error
		i, err = ParseInterval(interval)
		if err != nil {
			return 0, 0, err
		}
	}

	err := ValidateRequest(p, i)
	if err != nil {
		return 0, 0, err
	}

	return p, i, nil
}

// ParseDate parses date-time or date-only strings in the provided location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	dt, err := time.ParseInLocation(DateLayout, s, loc)
	if err == nil {
		return dt, nil
	}

	dt, err = time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date '%s': %w", s, err)
	}

	return dt, nil
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}
