package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/dnldd/impulse/shared"
	"github.com/rs/zerolog"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Location is the timezone bar dates are parsed in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data loaded from file.
type HistoricData struct {
	cfg    *HistoricDataConfig
	series *shared.Series
}

// Ensure HistoricData implements the SeriesFetcher interface.
var _ shared.SeriesFetcher = (*HistoricData)(nil)

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	series, err := shared.LoadHistoricData(cfg.FilePath, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	first := series.Candle(0).Date
	last, _ := series.Last()
	cfg.Logger.Info().Msgf("loaded %d %s bars for %s, from %s, to %s", series.Len(), series.Interval,
		series.Market, first.Format(time.RFC1123), last.Date.Format(time.RFC1123))

	return &HistoricData{
		cfg:    cfg,
		series: series,
	}, nil
}

// FetchSeries returns the historic bars between start and end. Longer intervals than the
// file's are resampled.
func (h *HistoricData) FetchSeries(_ context.Context, market string, interval shared.Interval, start time.Time, end time.Time) (*shared.Series, error) {
	if market != h.series.Market {
		return nil, fmt.Errorf("%w: historic data only covers %s, not %s", shared.ErrNoData,
			h.series.Market, market)
	}

	series := h.series
	if interval != series.Interval {
		var err error
		series, err = series.Resample(interval)
		if err != nil {
			return nil, fmt.Errorf("%w: %s historic data cannot serve %s bars: %v", shared.ErrNoData,
				h.series.Interval, interval, err)
		}
	}

	series = series.Between(start, end)
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: no historic %s bars for %s in range", shared.ErrNoData, interval, market)
	}

	return series, nil
}
