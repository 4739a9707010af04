package shared

import (
	"fmt"
	"slices"
	"time"
)

// Series represents an ordered sequence of bars for a market. A series is never mutated
// after construction.
type Series struct {
	Market   string
	Interval Interval
	candles  []Candlestick
}

// NewSeries initializes a series from the provided bars. Bars must be valid and strictly
// increasing by date.
func NewSeries(market string, interval Interval, candles []Candlestick) (*Series, error) {
	for idx := range candles {
		err := candles[idx].Validate()
		if err != nil {
			return nil, err
		}

		if idx > 0 && !candles[idx].Date.After(candles[idx-1].Date) {
			return nil, fmt.Errorf("%w: bar %d (%s) does not follow bar %d (%s)", ErrUnorderedSeries,
				idx, candles[idx].Date.Format(DateLayout), idx-1, candles[idx-1].Date.Format(DateLayout))
		}
	}

	return &Series{
		Market:   market,
		Interval: interval,
		candles:  slices.Clone(candles),
	}, nil
}

// SortCandlesticks orders the provided bars by date ascending and removes duplicate dates,
// keeping the last occurrence.
func SortCandlesticks(candles []Candlestick) []Candlestick {
	slices.SortStableFunc(candles, func(a, b Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	out := candles[:0]
	for idx := range candles {
		if len(out) > 0 && out[len(out)-1].Date.Equal(candles[idx].Date) {
			out[len(out)-1] = candles[idx]
			continue
		}
		out = append(out, candles[idx])
	}

	return out
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.candles)
}

// Candle returns the bar at the provided index.
func (s *Series) Candle(idx int) Candlestick {
	return s.candles[idx]
}

// Candles returns a copy of the series bars.
func (s *Series) Candles() []Candlestick {
	return slices.Clone(s.candles)
}

// Last returns the most recent bar. It returns false for an empty series.
func (s *Series) Last() (Candlestick, bool) {
	if len(s.candles) == 0 {
		return Candlestick{}, false
	}

	return s.candles[len(s.candles)-1], true
}

// Opens returns the series open prices.
func (s *Series) Opens() []float64 {
	return s.extract(func(c *Candlestick) float64 { return c.Open })
}

// Highs returns the series high prices.
func (s *Series) Highs() []float64 {
	return s.extract(func(c *Candlestick) float64 { return c.High })
}

// Lows returns the series low prices.
func (s *Series) Lows() []float64 {
	return s.extract(func(c *Candlestick) float64 { return c.Low })
}

// Closes returns the series close prices.
func (s *Series) Closes() []float64 {
	return s.extract(func(c *Candlestick) float64 { return c.Close })
}

// Volumes returns the series volumes.
func (s *Series) Volumes() []float64 {
	return s.extract(func(c *Candlestick) float64 { return c.Volume })
}

// Dates returns the series dates.
func (s *Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.candles))
	for idx := range s.candles {
		dates[idx] = s.candles[idx].Date
	}

	return dates
}

// extract collects a per-bar field.
func (s *Series) extract(field func(c *Candlestick) float64) []float64 {
	out := make([]float64, len(s.candles))
	for idx := range s.candles {
		out[idx] = field(&s.candles[idx])
	}

	return out
}

// From returns the trailing subseries of bars dated at or after the provided time.
func (s *Series) From(start time.Time) *Series {
	idx, _ := slices.BinarySearchFunc(s.candles, start, func(c Candlestick, t time.Time) int {
		return c.Date.Compare(t)
	})

	return &Series{
		Market:   s.Market,
		Interval: s.Interval,
		candles:  s.candles[idx:],
	}
}

// Between returns the subseries of bars dated within [start, end]. A zero start or end
// leaves that side unbounded.
func (s *Series) Between(start time.Time, end time.Time) *Series {
	out := s.From(start)
	if end.IsZero() {
		return out
	}

	idx, found := slices.BinarySearchFunc(out.candles, end, func(c Candlestick, t time.Time) int {
		return c.Date.Compare(t)
	})
	if found {
		idx++
	}

	return &Series{
		Market:   s.Market,
		Interval: s.Interval,
		candles:  out.candles[:idx],
	}
}

// Since returns the trailing subseries covering the provided duration before the last bar.
func (s *Series) Since(d time.Duration) *Series {
	last, ok := s.Last()
	if !ok {
		return s
	}

	return s.From(last.Date.Add(-d))
}

// Index returns the index of the first bar dated at or after the provided time.
func (s *Series) Index(t time.Time) int {
	idx, _ := slices.BinarySearchFunc(s.candles, t, func(c Candlestick, t time.Time) int {
		return c.Date.Compare(t)
	})

	return idx
}

// Resample aggregates the series into weekly or monthly bars. A bar's date is the date of
// the last bar aggregated into it.
func (s *Series) Resample(interval Interval) (*Series, error) {
	var bucket func(t time.Time) string
	switch interval {
	case OneWeek:
		bucket = func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-%d", year, week)
		}
	case OneMonth:
		bucket = func(t time.Time) string {
			return fmt.Sprintf("%d-%d", t.Year(), t.Month())
		}
	default:
		return nil, fmt.Errorf("resampling to %s is not supported", interval)
	}

	if s.Interval >= interval {
		return nil, fmt.Errorf("cannot resample %s bars to %s", s.Interval, interval)
	}

	out := make([]Candlestick, 0, len(s.candles)/4+1)
	var current string
	for idx := range s.candles {
		candle := s.candles[idx]
		key := bucket(candle.Date)

		if len(out) == 0 || key != current {
			current = key
			candle.Interval = interval
			out = append(out, candle)
			continue
		}

		agg := &out[len(out)-1]
		agg.High = max(agg.High, candle.High)
		agg.Low = min(agg.Low, candle.Low)
		agg.Close = candle.Close
		agg.Volume += candle.Volume
		agg.Date = candle.Date
	}

	return &Series{
		Market:   s.Market,
		Interval: interval,
		candles:  out,
	}, nil
}
