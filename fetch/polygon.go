package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/dnldd/impulse/shared"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
)

const (
	// polygonPageLimit is the maximum number of aggregates requested per page.
	polygonPageLimit = 50000
	// polygonHistoryYears bounds full history requests.
	polygonHistoryYears = 20
)

// PolygonConfig represents the configuration for the polygon client.
type PolygonConfig struct {
	// APIKey is the polygon API key.
	APIKey string
	// Location is the timezone bar dates are reported in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// PolygonClient represents the polygon.io aggregates client.
type PolygonClient struct {
	cfg    *PolygonConfig
	client *polygon.Client
}

// Ensure the PolygonClient implements the SeriesFetcher interface.
var _ shared.SeriesFetcher = (*PolygonClient)(nil)

// NewPolygonClient instantiates a new polygon client.
func NewPolygonClient(cfg *PolygonConfig) *PolygonClient {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &PolygonClient{
		cfg:    cfg,
		client: polygon.New(cfg.APIKey),
	}
}

// aggregateSpan returns the aggregate multiplier and timespan of the provided interval.
func aggregateSpan(interval shared.Interval) (int, models.Timespan, error) {
	switch interval {
	case shared.OneMinute:
		return 1, models.Minute, nil
	case shared.TwoMinute:
		return 2, models.Minute, nil
	case shared.FiveMinute:
		return 5, models.Minute, nil
	case shared.FifteenMinute:
		return 15, models.Minute, nil
	case shared.ThirtyMinute:
		return 30, models.Minute, nil
	case shared.SixtyMinute:
		return 1, models.Hour, nil
	case shared.OneDay:
		return 1, models.Day, nil
	case shared.OneWeek:
		return 1, models.Week, nil
	case shared.OneMonth:
		return 1, models.Month, nil
	default:
		return 0, "", fmt.Errorf("unknown interval provided: %s", interval)
	}
}

// aggToCandlestick converts a polygon aggregate to a candlestick.
func aggToCandlestick(agg models.Agg, market string, interval shared.Interval, loc *time.Location) shared.Candlestick {
	return shared.Candlestick{
		Open:     agg.Open,
		High:     agg.High,
		Low:      agg.Low,
		Close:    agg.Close,
		Volume:   agg.Volume,
		Date:     time.Time(agg.Timestamp).In(loc),
		Market:   market,
		Interval: interval,
	}
}

// FetchSeries fetches the aggregates of a market at the provided interval.
func (c *PolygonClient) FetchSeries(ctx context.Context, market string, interval shared.Interval, start time.Time, end time.Time) (*shared.Series, error) {
	multiplier, timespan, err := aggregateSpan(interval)
	if err != nil {
		return nil, err
	}

	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(-polygonHistoryYears, 0, 0)
	}

	params := models.ListAggsParams{
		Ticker:     market,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.
		WithAdjusted(true).
		WithOrder(models.Order("asc")).
		WithLimit(polygonPageLimit)

	iter := c.client.ListAggs(ctx, params)

	candles := make([]shared.Candlestick, 0, 256)
	for iter.Next() {
		candles = append(candles, aggToCandlestick(iter.Item(), market, interval, c.cfg.Location))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("fetching %s aggregates for %s: %w", interval, market, err)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: polygon returned no %s bars for %s", shared.ErrNoData, interval, market)
	}

	c.cfg.Logger.Debug().Msgf("fetched %d %s aggregates for %s", len(candles), interval, market)

	return shared.NewSeries(market, interval, shared.SortCandlesticks(candles))
}
