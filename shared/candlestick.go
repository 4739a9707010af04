package shared

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// Candlestick represents a unit OHLCV bar for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata.
	Market   string
	Interval Interval
}

// Validate asserts the candlestick describes a tradable bar.
func (c *Candlestick) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at %s", ErrInvalidCandle, c.Date.Format(DateLayout))
		}
	}

	switch {
	case c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0:
		return fmt.Errorf("%w: non-positive price at %s", ErrInvalidCandle, c.Date.Format(DateLayout))
	case c.High < c.Low:
		return fmt.Errorf("%w: high %.4f below low %.4f at %s", ErrInvalidCandle, c.High, c.Low,
			c.Date.Format(DateLayout))
	case c.Volume < 0:
		return fmt.Errorf("%w: negative volume at %s", ErrInvalidCandle, c.Date.Format(DateLayout))
	case c.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidCandle)
	}

	return nil
}

// ParseCandlesticks parses candlesticks from the provided json data. Dates are parsed in the
// provided location, both date-time and date-only layouts are accepted.
func ParseCandlesticks(data []gjson.Result, market string, interval Interval, loc *time.Location) ([]Candlestick, error) {
	candles := make([]Candlestick, len(data))

	for idx := range data {
		var candle Candlestick

		candle.Open = data[idx].Get("open").Float()
		candle.Low = data[idx].Get("low").Float()
		candle.High = data[idx].Get("high").Float()
		candle.Close = data[idx].Get("close").Float()
		candle.Volume = data[idx].Get("volume").Float()

		candle.Market = market
		candle.Interval = interval

		dt, err := ParseDate(data[idx].Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick date: %w", err)
		}

		candle.Date = dt
		candles[idx] = candle
	}

	return candles, nil
}
