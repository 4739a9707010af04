package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/impulse/shared"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	// DefaultCacheTTL is the default duration cached bars are served for.
	DefaultCacheTTL = time.Minute * 15

	createBarsTableSQL = `CREATE TABLE IF NOT EXISTS bars (
		market   TEXT    NOT NULL,
		interval TEXT    NOT NULL,
		ts       INTEGER NOT NULL,
		open     REAL    NOT NULL,
		high     REAL    NOT NULL,
		low      REAL    NOT NULL,
		close    REAL    NOT NULL,
		volume   REAL    NOT NULL,
		PRIMARY KEY (market, interval, ts)
	)`
	createFetchesTableSQL = `CREATE TABLE IF NOT EXISTS fetches (
		market    TEXT    NOT NULL,
		interval  TEXT    NOT NULL,
		start     INTEGER NOT NULL,
		finish    INTEGER NOT NULL,
		fetchedon INTEGER NOT NULL,
		PRIMARY KEY (market, interval, start, finish)
	)`
	upsertBarSQL = `INSERT INTO bars(market, interval, ts, open, high, low, close, volume)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(market, interval, ts) DO UPDATE SET
		open = excluded.open, high = excluded.high, low = excluded.low,
		close = excluded.close, volume = excluded.volume`
	upsertFetchSQL = `INSERT INTO fetches(market, interval, start, finish, fetchedon) VALUES(?,?,?,?,?)
		ON CONFLICT(market, interval, start, finish) DO UPDATE SET fetchedon = excluded.fetchedon`
	findFetchSQL = "SELECT fetchedon FROM fetches WHERE market = ? AND interval = ? AND start = ? AND finish = ?"
	findBarsSQL  = `SELECT ts, open, high, low, close, volume FROM bars
		WHERE market = ? AND interval = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC`
)

// CacheConfig represents the configuration for the bar cache.
type CacheConfig struct {
	// Path is the sqlite database file path.
	Path string
	// TTL is the duration cached bars are served before being refetched.
	TTL time.Duration
	// Fetcher is the fetcher cache misses are served by.
	Fetcher shared.SeriesFetcher
	// Location is the timezone cached bar dates are restored in.
	Location *time.Location
	// Now returns the current time.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Cache represents a sqlite backed bar cache wrapping a series fetcher.
type Cache struct {
	cfg *CacheConfig
	db  *sql.DB
}

// Ensure the Cache implements the SeriesFetcher interface.
var _ shared.SeriesFetcher = (*Cache)(nil)

// NewCache opens the sqlite bar cache at the configured path.
func NewCache(cfg *CacheConfig) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening bar cache: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{createBarsTableSQL, createFetchesTableSQL} {
		_, err = db.Exec(stmt)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating bar cache schema: %w", err)
		}
	}

	return &Cache{
		cfg: cfg,
		db:  db,
	}, nil
}

// Close closes the bar cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// alignStart rounds a request start down to the cache key granularity: the day for daily
// and longer intervals, the ttl for intraday ones. Lookback requests keyed on the wall clock
// then share an entry until the boundary passes.
func (c *Cache) alignStart(start time.Time, interval shared.Interval) time.Time {
	if start.IsZero() {
		return start
	}

	granularity := time.Hour * 24
	if interval.Intraday() {
		granularity = c.cfg.TTL
	}

	return start.Truncate(granularity)
}

// requestBounds returns the cache key bounds of a request. Zero times map to zero.
func requestBounds(start time.Time, end time.Time) (int64, int64) {
	var from, to int64
	if !start.IsZero() {
		from = start.Unix()
	}
	if !end.IsZero() {
		to = end.Unix()
	}

	return from, to
}

// fresh reports whether the provided request was fetched within the ttl.
func (c *Cache) fresh(ctx context.Context, market string, interval shared.Interval, from int64, to int64) (bool, error) {
	var fetchedOn int64
	err := c.db.QueryRowContext(ctx, findFetchSQL, market, interval.String(), from, to).Scan(&fetchedOn)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("finding cached fetch: %w", err)
	}

	return c.cfg.Now().Sub(time.Unix(fetchedOn, 0)) < c.cfg.TTL, nil
}

// read restores the cached bars of the provided request.
func (c *Cache) read(ctx context.Context, market string, interval shared.Interval, from int64, to int64) (*shared.Series, error) {
	until := to
	if until == 0 {
		until = c.cfg.Now().Unix()
	}

	rows, err := c.db.QueryContext(ctx, findBarsSQL, market, interval.String(), from, until)
	if err != nil {
		return nil, fmt.Errorf("querying cached bars: %w", err)
	}
	defer rows.Close()

	candles := make([]shared.Candlestick, 0, 256)
	for rows.Next() {
		var ts int64
		candle := shared.Candlestick{Market: market, Interval: interval}
		err := rows.Scan(&ts, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume)
		if err != nil {
			return nil, fmt.Errorf("scanning cached bar: %w", err)
		}
		candle.Date = time.Unix(ts, 0).In(c.cfg.Location)
		candles = append(candles, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached bars: %w", err)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no cached %s bars for %s", shared.ErrNoData, interval, market)
	}

	return shared.NewSeries(market, interval, candles)
}

// write stores the provided series and records the fetch.
func (c *Cache) write(ctx context.Context, series *shared.Series, from int64, to int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBarSQL)
	if err != nil {
		return fmt.Errorf("preparing bar upsert: %w", err)
	}
	defer stmt.Close()

	interval := series.Interval.String()
	for idx := 0; idx < series.Len(); idx++ {
		candle := series.Candle(idx)
		_, err = stmt.ExecContext(ctx, series.Market, interval, candle.Date.Unix(), candle.Open,
			candle.High, candle.Low, candle.Close, candle.Volume)
		if err != nil {
			return fmt.Errorf("caching bar: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, upsertFetchSQL, series.Market, interval, from, to, c.cfg.Now().Unix())
	if err != nil {
		return fmt.Errorf("recording fetch: %w", err)
	}

	return tx.Commit()
}

// FetchSeries serves the requested bars from the cache while they are fresh, otherwise it
// fetches and caches them.
func (c *Cache) FetchSeries(ctx context.Context, market string, interval shared.Interval, start time.Time, end time.Time) (*shared.Series, error) {
	start = c.alignStart(start, interval)
	from, to := requestBounds(start, end)

	fresh, err := c.fresh(ctx, market, interval, from, to)
	if err != nil {
		c.cfg.Logger.Error().Msgf("checking cache for %s: %v", market, err)
	}
	if fresh {
		series, err := c.read(ctx, market, interval, from, to)
		if err == nil {
			return series, nil
		}
		c.cfg.Logger.Error().Msgf("reading cached %s bars for %s: %v", interval, market, err)
	}

	series, err := c.cfg.Fetcher.FetchSeries(ctx, market, interval, start, end)
	if err != nil {
		return nil, err
	}

	err = c.write(ctx, series, from, to)
	if err != nil {
		c.cfg.Logger.Error().Msgf("caching %s bars for %s: %v", interval, market, err)
	}

	return series, nil
}
