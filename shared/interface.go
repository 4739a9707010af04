package shared

import (
	"context"
	"time"
)

// SeriesFetcher defines the requirements for fetching market data.
type SeriesFetcher interface {
	// FetchSeries fetches the bars of a market at the provided interval between start and
	// end. A zero start requests the full history, a zero end requests up to now. It returns
	// ErrNoData when no bars exist.
	FetchSeries(ctx context.Context, market string, interval Interval, start time.Time, end time.Time) (*Series, error)
}
