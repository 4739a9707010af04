package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/impulse/chart"
	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/score"
	"github.com/dnldd/impulse/shared"
	"github.com/gin-gonic/gin"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

// stubAnalyzer serves canned analysis and records the last request.
type stubAnalyzer struct {
	err      error
	market   string
	period   shared.Period
	interval shared.Interval
	theme    shared.Theme
}

func (a *stubAnalyzer) Review(_ context.Context, market string) (*score.Card, error) {
	a.market = market
	if a.err != nil {
		return nil, a.err
	}

	return &score.Card{
		ID:     "card",
		Market: market,
		Date:   time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC),
		Outcomes: []score.Outcome{
			{Kind: score.WeeklyImpulseKind, Error: shared.ErrUnresolvedDisagreement.Error()},
			{Kind: score.ValueZoneKind, Score: 1, Description: "inside value zone"},
		},
	}, nil
}

func (a *stubAnalyzer) Indicator(_ context.Context, market string, period shared.Period, interval shared.Interval, kind indicator.Kind) (*indicator.Output, error) {
	a.market, a.period, a.interval = market, period, interval
	if a.err != nil {
		return nil, a.err
	}

	return &indicator.Output{
		Kind:  kind,
		Dates: []time.Time{time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)},
		Lines: []indicator.Line{{Name: indicator.ValueLine, Values: []shared.Value{shared.Defined(55)}}},
	}, nil
}

func (a *stubAnalyzer) Chart(_ context.Context, market string, period shared.Period, interval shared.Interval, kind chart.Kind, theme shared.Theme) ([]byte, error) {
	a.market, a.period, a.interval, a.theme = market, period, interval, theme
	if a.err != nil {
		return nil, a.err
	}

	return []byte("\x89PNG"), nil
}

// stubReports serves canned reports and counts parameter snapshots.
type stubReports struct {
	cards     []score.Card
	limit     int
	snapshots int
}

func (r *stubReports) PersistCard(_ context.Context, _ *score.Card) error {
	return nil
}

func (r *stubReports) FetchCards(_ context.Context, _ string, limit int) ([]score.Card, error) {
	r.limit = limit
	return r.cards, nil
}

func (r *stubReports) PersistParams(_ context.Context, _ params.Params) error {
	r.snapshots++
	return nil
}

// stubHistory serves the history of a single market.
type stubHistory struct {
	market string
	cards  []*score.Card
}

func (h *stubHistory) History(market string, n int32) ([]*score.Card, bool) {
	if market != h.market {
		return nil, false
	}

	return h.cards, true
}

// testServer builds a server over stubs and a temporary parameter file.
func testServer(t *testing.T) (*Server, *stubAnalyzer, *stubReports) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	store, err := params.NewStore(&params.StoreConfig{
		Path:   filepath.Join(t.TempDir(), "config.yml"),
		Logger: &logger,
	})
	assert.NoError(t, err)

	analyzer := &stubAnalyzer{}
	reports := &stubReports{cards: []score.Card{{ID: "a", Market: "^GSPC"}}}
	srv, err := NewServer(&ServerConfig{
		Address:         ":0",
		Analyzer:        analyzer,
		Params:          store,
		ParamsSnapshots: reports,
		Reports:         reports,
		History:         &stubHistory{market: "^GSPC", cards: []*score.Card{{ID: "h"}}},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "impulse_evaluations_total 1")
		}),
		Logger: &logger,
	})
	assert.NoError(t, err)

	return srv, analyzer, reports
}

// serve performs a request against the server.
func serve(srv *Server, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	// Ensure invalid configs are rejected.
	_, err := NewServer(&ServerConfig{})
	assert.Error(t, err)
	for _, key := range []string{"address", "analyzer", "params", "logger"} {
		assert.True(t, strings.Contains(err.Error(), key))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := serve(srv, http.MethodGet, "/health", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))

	rec = serve(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), "impulse_evaluations_total"))
}

func TestHandleReview(t *testing.T) {
	srv, analyzer, _ := testServer(t)

	// Ensure cards are served with per outcome failures.
	rec := serve(srv, http.MethodGet, "/api/v1/review/AAPL", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, analyzer.market, "AAPL")

	var card score.Card
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, card.Failed(), 1)
	zone, ok := card.Outcome(score.ValueZoneKind)
	assert.True(t, ok)
	assert.Equal(t, zone.Score, score.Score(1))

	// Ensure errors map to status codes.
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("fetching: %w", shared.ErrNoData), http.StatusNotFound},
		{fmt.Errorf("%w: bad", shared.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("evaluating: %w", shared.ErrInsufficientData), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		analyzer.err = test.err
		rec = serve(srv, http.MethodGet, "/api/v1/review/AAPL", "")
		assert.Equal(t, rec.Code, test.status)
	}
}

func TestHandleIndicator(t *testing.T) {
	srv, analyzer, _ := testServer(t)

	// Ensure defaults apply when no period or interval is provided.
	rec := serve(srv, http.MethodGet, "/api/v1/indicator/AAPL/rsi", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, analyzer.period, shared.OneYearPeriod)
	assert.Equal(t, analyzer.interval, shared.OneDay)
	assert.True(t, strings.Contains(rec.Body.String(), `"kind":"rsi"`))

	rec = serve(srv, http.MethodGet, "/api/v1/indicator/AAPL/macd?period=5y&interval=1mo", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, analyzer.period, shared.FiveYearPeriod)
	assert.Equal(t, analyzer.interval, shared.OneMonth)

	// Ensure invalid requests are rejected.
	for _, target := range []string{
		"/api/v1/indicator/AAPL/vwap",
		"/api/v1/indicator/AAPL/rsi?period=3y",
		"/api/v1/indicator/AAPL/rsi?period=6mo&interval=1wk",
	} {
		rec = serve(srv, http.MethodGet, target, "")
		assert.Equal(t, rec.Code, http.StatusBadRequest)
	}
}

func TestHandleChart(t *testing.T) {
	srv, analyzer, _ := testServer(t)

	// Ensure charts default to the configured mode.
	rec := serve(srv, http.MethodGet, "/api/v1/chart/AAPL/price", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Header().Get("Content-Type"), "image/png")
	assert.Equal(t, analyzer.theme, shared.Light)

	rec = serve(srv, http.MethodGet, "/api/v1/chart/AAPL/adx?theme=darkblue", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, analyzer.theme, shared.DarkBlue)

	// Ensure unknown kinds and themes are rejected.
	rec = serve(srv, http.MethodGet, "/api/v1/chart/AAPL/candles", "")
	assert.Equal(t, rec.Code, http.StatusBadRequest)
	rec = serve(srv, http.MethodGet, "/api/v1/chart/AAPL/price?theme=sepia", "")
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	// Ensure available chart kinds follow the period.
	rec = serve(srv, http.MethodGet, "/api/v1/charts?period=10y", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), "cycles"))
	rec = serve(srv, http.MethodGet, "/api/v1/charts", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.False(t, strings.Contains(rec.Body.String(), "cycles"))
}

func TestHandleParams(t *testing.T) {
	srv, _, reports := testServer(t)

	rec := serve(srv, http.MethodGet, "/api/v1/params", "")
	assert.Equal(t, rec.Code, http.StatusOK)

	var p params.Params
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, p.RSIWindow, 14)

	// Ensure window updates are applied and snapshotted.
	rec = serve(srv, http.MethodPut, "/api/v1/params/rsi_window", `{"value": 21}`)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, p.RSIWindow, 21)
	assert.Equal(t, reports.snapshots, 1)

	// Ensure the mode can be updated.
	rec = serve(srv, http.MethodPut, "/api/v1/params/mode", `{"value": "dark"}`)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, p.Mode, shared.Dark)
	assert.Equal(t, reports.snapshots, 2)

	// Ensure invalid updates are rejected without snapshots.
	for _, test := range []struct {
		key  string
		body string
	}{
		{"rsi_window", `{"value": 2}`},
		{"rsi_window", `{"value": 301}`},
		{"rsi_window", `{"value": "fast"}`},
		{"unknown", `{"value": 14}`},
		{"mode", `{"value": "sepia"}`},
		{"mode", `{"value": 3}`},
		{"rsi_window", `{`},
	} {
		rec = serve(srv, http.MethodPut, "/api/v1/params/"+test.key, test.body)
		assert.Equal(t, rec.Code, http.StatusBadRequest)
	}
	assert.Equal(t, reports.snapshots, 2)
}

func TestHandleReportsAndHistory(t *testing.T) {
	srv, _, reports := testServer(t)

	rec := serve(srv, http.MethodGet, "/api/v1/reports/^GSPC?limit=5", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, reports.limit, 5)
	assert.True(t, strings.Contains(rec.Body.String(), `"id":"a"`))

	rec = serve(srv, http.MethodGet, "/api/v1/reports/^GSPC", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, reports.limit, defaultReportLimit)

	rec = serve(srv, http.MethodGet, "/api/v1/reports/^GSPC?limit=0", "")
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	// Ensure only watchlist markets have history.
	rec = serve(srv, http.MethodGet, "/api/v1/history/^GSPC", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), `"id":"h"`))

	rec = serve(srv, http.MethodGet, "/api/v1/history/AAPL", "")
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestHandleHelp(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := serve(srv, http.MethodGet, "/api/v1/help", "")
	assert.Equal(t, rec.Code, http.StatusOK)

	var resp struct {
		Topics []HelpTopic `json:"topics"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Topics), len(HelpTopics()))

	rec = serve(srv, http.MethodGet, "/api/v1/help/RSI", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Topics), 1)
	assert.Equal(t, resp.Topics[0].Topic, "rsi")

	rec = serve(srv, http.MethodGet, "/api/v1/help/vwap", "")
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestHelp(t *testing.T) {
	// Ensure aliases resolve to their topics.
	for alias, topic := range helpAliases {
		topics, err := Help(alias)
		assert.NoError(t, err)
		assert.Equal(t, topics[0].Topic, topic)
	}

	_, err := Help("ichimoku")
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}

func TestServerRun(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	// Ensure the server shuts down gracefully on cancellation.
	time.Sleep(time.Millisecond * 100)
	cancel()
	assert.NoError(t, <-done)
}
