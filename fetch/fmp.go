package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dnldd/impulse/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	baseURL = "https://financialmodelingprep.com/stable"

	eodHistoricalPath = "/historical-price-eod/full"
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIkey is the FMP API Key.
	APIKey string
	// BaseURL overrides the FMP api base url.
	BaseURL string
	// Location is the timezone bar dates are reported in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// FMPClient represents the Financial Modeling Preparation (FMP) API client.
type FMPClient struct {
	cfg   *FMPConfig
	httpc http.Client
	buf   *bytes.Buffer
	mtx   sync.Mutex
}

// Ensure the FMPClient implements the SeriesFetcher interface.
var _ shared.SeriesFetcher = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) *FMPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 10},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}
}

// formURL creates full urls including paramters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// intradayPath returns the intraday historical chart path of the provided interval.
func intradayPath(interval shared.Interval) (string, error) {
	switch interval {
	case shared.OneMinute:
		return "/historical-chart/1min", nil
	case shared.FiveMinute:
		return "/historical-chart/5min", nil
	case shared.FifteenMinute:
		return "/historical-chart/15min", nil
	case shared.ThirtyMinute:
		return "/historical-chart/30min", nil
	case shared.SixtyMinute:
		return "/historical-chart/1hour", nil
	default:
		return "", fmt.Errorf("interval %s is not supported by fmp", interval)
	}
}

// get fetches the json array at the provided url.
func (c *FMPClient) get(ctx context.Context, formedURL string) ([]gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, gjson.GetBytes(body, "Error Message").String())
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid json")
	}

	parsed := gjson.ParseBytes(body)
	if msg := parsed.Get("Error Message"); msg.Exists() {
		return nil, fmt.Errorf("fmp error: %s", msg.String())
	}

	return parsed.Array(), nil
}

// FetchHistorical fetches raw historical bars of a market. Daily and longer intervals are
// served from end of day data.
func (c *FMPClient) FetchHistorical(ctx context.Context, market string, interval shared.Interval, start time.Time, end time.Time) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)
	if !start.IsZero() {
		params.Add("from", start.Format(shared.DayLayout))
	}
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DayLayout))
	}

	path := eodHistoricalPath
	if interval.Intraday() {
		var err error
		path, err = intradayPath(interval)
		if err != nil {
			return nil, err
		}
	}

	data, err := c.get(ctx, c.formURL(path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching historical data (%s) for %s: %w", interval.String(), market, err)
	}

	return data, nil
}

// FetchSeries fetches the bars of a market at the provided interval. Weekly and monthly
// bars are resampled from daily bars.
func (c *FMPClient) FetchSeries(ctx context.Context, market string, interval shared.Interval, start time.Time, end time.Time) (*shared.Series, error) {
	fetchInterval := interval
	if interval > shared.OneDay {
		fetchInterval = shared.OneDay
	}

	data, err := c.FetchHistorical(ctx, market, fetchInterval, start, end)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: fmp returned no %s bars for %s", shared.ErrNoData, interval, market)
	}

	candles, err := shared.ParseCandlesticks(data, market, fetchInterval, c.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks for %s: %w", market, err)
	}

	series, err := shared.NewSeries(market, fetchInterval, shared.SortCandlesticks(candles))
	if err != nil {
		return nil, fmt.Errorf("building %s series: %w", market, err)
	}

	c.cfg.Logger.Debug().Msgf("fetched %d %s bars for %s", series.Len(), fetchInterval, market)

	if fetchInterval == interval {
		return series, nil
	}

	return series.Resample(interval)
}
