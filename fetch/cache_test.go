package fetch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnldd/impulse/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// countingFetcher serves a fixed series and counts fetches.
type countingFetcher struct {
	series *shared.Series
	err    error
	calls  atomic.Int32
}

// FetchSeries returns the configured series.
func (f *countingFetcher) FetchSeries(_ context.Context, market string, interval shared.Interval, start time.Time, end time.Time) (*shared.Series, error) {
	f.calls.Inc()
	if f.err != nil {
		return nil, f.err
	}

	return f.series.Between(start, end), nil
}

// cacheSeries builds a daily series for cache tests.
func cacheSeries(t *testing.T, start time.Time, n int) *shared.Series {
	t.Helper()

	candles := make([]shared.Candlestick, n)
	for idx := range candles {
		price := 100 + float64(idx)
		candles[idx] = shared.Candlestick{
			Open:     price,
			High:     price + 2,
			Low:      price - 1,
			Close:    price + 1,
			Volume:   1000 + float64(idx),
			Date:     start.AddDate(0, 0, idx),
			Market:   "^GSPC",
			Interval: shared.OneDay,
		}
	}

	series, err := shared.NewSeries("^GSPC", shared.OneDay, candles)
	assert.NoError(t, err)

	return series
}

func TestCache(t *testing.T) {
	logger := zerolog.Nop()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.AddDate(0, 0, 40)
	clock := func() time.Time { return now }

	source := &countingFetcher{series: cacheSeries(t, start, 30)}
	cache, err := NewCache(&CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		TTL:     time.Hour,
		Fetcher: source,
		Now:     clock,
		Logger:  &logger,
	})
	assert.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	// Ensure a cache miss is served by the wrapped fetcher.
	series, err := cache.FetchSeries(ctx, "^GSPC", shared.OneDay, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 30)
	assert.Equal(t, source.calls.Load(), int32(1))

	// Ensure a fresh request is served from the cache with identical bars.
	cached, err := cache.FetchSeries(ctx, "^GSPC", shared.OneDay, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, source.calls.Load(), int32(1))
	assert.Equal(t, cached.Len(), series.Len())
	if diff := cmp.Diff(series.Closes(), cached.Closes()); diff != "" {
		t.Fatalf("cached closes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(series.Volumes(), cached.Volumes()); diff != "" {
		t.Fatalf("cached volumes mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, cached.Candle(0).Date.Equal(start))

	// Ensure distinct ranges are cached separately.
	_, err = cache.FetchSeries(ctx, "^GSPC", shared.OneDay, start.AddDate(0, 0, 10), time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, source.calls.Load(), int32(2))

	// Ensure stale entries are refetched.
	now = now.Add(time.Hour * 2)
	_, err = cache.FetchSeries(ctx, "^GSPC", shared.OneDay, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, source.calls.Load(), int32(3))

	// Ensure fetch errors are not cached.
	failing := &countingFetcher{err: shared.ErrNoData}
	cache.cfg.Fetcher = failing
	_, err = cache.FetchSeries(ctx, "AAPL", shared.OneDay, time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, shared.ErrNoData))
	_, err = cache.FetchSeries(ctx, "AAPL", shared.OneDay, time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, shared.ErrNoData))
	assert.Equal(t, failing.calls.Load(), int32(2))
}

func TestRequestBounds(t *testing.T) {
	from, to := requestBounds(time.Time{}, time.Time{})
	assert.Equal(t, from, int64(0))
	assert.Equal(t, to, int64(0))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	from, to = requestBounds(start, start.Add(time.Hour))
	assert.Equal(t, from, start.Unix())
	assert.Equal(t, to, start.Unix()+3600)
}

func TestCacheLookbackRequests(t *testing.T) {
	logger := zerolog.Nop()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	source := &countingFetcher{series: cacheSeries(t, start, 30)}
	cache, err := NewCache(&CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		TTL:     time.Minute * 15,
		Fetcher: source,
		Now:     clock,
		Logger:  &logger,
	})
	assert.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	lookback := time.Hour * 24 * 30

	// Ensure lookback requests a second apart share a cache entry.
	var first *shared.Series
	for range 3 {
		series, err := cache.FetchSeries(ctx, "^GSPC", shared.OneDay, now.Add(-lookback), time.Time{})
		assert.NoError(t, err)
		if first == nil {
			first = series
		}
		assert.Equal(t, series.Len(), first.Len())
		now = now.Add(time.Second)
	}
	assert.Equal(t, source.calls.Load(), int32(1))

	// Ensure the aligned start still covers the requested range.
	assert.True(t, !first.Candle(0).Date.After(now.Add(-lookback)))

	// Ensure a request past the day boundary is fetched again.
	now = now.Add(time.Hour * 24)
	_, err = cache.FetchSeries(ctx, "^GSPC", shared.OneDay, now.Add(-lookback), time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, source.calls.Load(), int32(2))
}

func TestCacheAlignStart(t *testing.T) {
	logger := zerolog.Nop()
	cache := &Cache{cfg: &CacheConfig{TTL: time.Minute * 15, Logger: &logger}}
	at := time.Date(2025, 2, 10, 12, 7, 31, 0, time.UTC)

	// Ensure daily starts round to the day, intraday starts to the ttl.
	assert.True(t, cache.alignStart(at, shared.OneDay).Equal(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cache.alignStart(at, shared.FiveMinute).Equal(time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)))
	assert.True(t, cache.alignStart(time.Time{}, shared.OneDay).IsZero())
}
