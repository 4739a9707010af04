package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("historic data file '%s' is not valid json", filepath)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// LoadHistoricData loads a series from a historic data file of the form
// {"market": "...", "interval": "1d", "data": [{"date": ..., "open": ...}, ...]}.
// Bars are sorted by date before the series is built.
func LoadHistoricData(filepath string, loc *time.Location) (*Series, error) {
	b, err := loadHistoricData(filepath)
	if err != nil {
		return nil, err
	}

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("historic data file '%s' has no market", filepath)
	}

	interval := OneDay
	if raw := b.Get("interval").String(); raw != "" {
		interval, err = ParseInterval(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing historic data interval: %w", err)
		}
	}

	data := b.Get("data").Array()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: historic data file '%s' has no bars", ErrNoData, filepath)
	}

	candles, err := ParseCandlesticks(data, market, interval, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %w", err)
	}

	return NewSeries(market, interval, SortCandlesticks(candles))
}
