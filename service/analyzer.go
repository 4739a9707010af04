package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/impulse/chart"
	"github.com/dnldd/impulse/indicator"
	"github.com/dnldd/impulse/metrics"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/score"
	"github.com/dnldd/impulse/shared"
	"github.com/dnldd/impulse/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ReviewLookback is how far back daily bars are fetched for a review.
	ReviewLookback = time.Hour * 24 * 365 * 3
)

// ParamsProvider defines the requirements for reading the current parameters.
type ParamsProvider interface {
	// Params returns the current parameters.
	Params() params.Params
}

// AnalyzerConfig represents the configuration of the analyzer.
type AnalyzerConfig struct {
	// Fetcher supplies market bars.
	Fetcher shared.SeriesFetcher
	// Params supplies the current parameters.
	Params ParamsProvider
	// Renderer renders charts.
	Renderer *chart.Renderer
	// Metrics records analyzer metrics.
	Metrics *metrics.Metrics
	// Tracer starts analyzer spans.
	Tracer *tracing.Tracer
	// Now returns the current time.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *AnalyzerConfig) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("series fetcher cannot be nil"))
	}
	if cfg.Params == nil {
		errs = errors.Join(errs, fmt.Errorf("params provider cannot be nil"))
	}
	if cfg.Renderer == nil {
		errs = errors.Join(errs, fmt.Errorf("chart renderer cannot be nil"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Tracer == nil {
		errs = errors.Join(errs, fmt.Errorf("tracer cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Analyzer fetches market series and derives indicators, score cards and charts from them.
type Analyzer struct {
	cfg *AnalyzerConfig
}

// NewAnalyzer initializes an analyzer.
func NewAnalyzer(cfg *AnalyzerConfig) (*Analyzer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Analyzer{cfg: cfg}, nil
}

// endSpan records the provided error on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// fetch fetches the bars of a market from start onwards.
func (a *Analyzer) fetch(ctx context.Context, market string, interval shared.Interval, start time.Time) (*shared.Series, error) {
	ctx, span := a.cfg.Tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("market", market),
		attribute.String("interval", interval.String()),
	))

	began := time.Now()
	series, err := a.cfg.Fetcher.FetchSeries(ctx, market, interval, start, time.Time{})
	a.cfg.Metrics.FetchDur.Observe(time.Since(began).Seconds())
	a.cfg.Metrics.FetchesTotal.WithLabelValues(interval.String(), metrics.Result(err)).Inc()
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("fetching %s bars for %s: %w", interval, market, err)
	}

	span.SetAttributes(attribute.Int("bars", series.Len()))
	endSpan(span, nil)

	return series, nil
}

// displayStart returns the start of the display window of a period, relative to the last bar.
func displayStart(series *shared.Series, period shared.Period) time.Time {
	last, ok := series.Last()
	if !ok {
		return time.Time{}
	}

	return last.Date.Add(-period.Duration())
}

// Series fetches the bars of a market for the provided period and interval. Bars are
// requested from the interval's lookback so indicators warm up before the display window.
func (a *Analyzer) Series(ctx context.Context, market string, period shared.Period, interval shared.Interval) (*shared.Series, error) {
	if market == "" {
		return nil, fmt.Errorf("%w: market cannot be an empty string", shared.ErrInvalidRequest)
	}

	err := shared.ValidateRequest(period, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}

	var start time.Time
	if lookback := interval.Lookback(); lookback > 0 {
		start = a.cfg.Now().Add(-lookback)
	}

	return a.fetch(ctx, market, interval, start)
}

// Review evaluates the score card of a market from its daily bars and their weekly resample.
func (a *Analyzer) Review(ctx context.Context, market string) (*score.Card, error) {
	if market == "" {
		return nil, fmt.Errorf("%w: market cannot be an empty string", shared.ErrInvalidRequest)
	}

	ctx, span := a.cfg.Tracer.Start(ctx, "review", trace.WithAttributes(attribute.String("market", market)))

	logger := a.cfg.Logger
	if traceID, spanID, ok := tracing.TraceFields(ctx); ok {
		spanLogger := logger.With().Str("trace_id", traceID).Str("span_id", spanID).Logger()
		logger = &spanLogger
	}

	daily, err := a.fetch(ctx, market, shared.OneDay, a.cfg.Now().Add(-ReviewLookback))
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	weekly, err := daily.Resample(shared.OneWeek)
	if err != nil {
		logger.Error().Msgf("resampling %s to weekly bars: %v", market, err)
		weekly, err = shared.NewSeries(market, shared.OneWeek, nil)
		if err != nil {
			endSpan(span, err)
			return nil, fmt.Errorf("creating empty weekly series: %w", err)
		}
	}

	p := a.cfg.Params.Params()

	began := time.Now()
	card, err := score.Evaluate(daily, weekly, p.Windows())
	a.cfg.Metrics.EvaluationDur.Observe(time.Since(began).Seconds())
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("evaluating %s: %w", market, err)
	}

	a.cfg.Metrics.ObserveCard(card)
	if failed := card.Failed(); failed > 0 {
		logger.Debug().Msgf("%s evaluated with %d failed signals", market, failed)
	}
	span.SetAttributes(attribute.Int("failed", card.Failed()))
	endSpan(span, nil)

	return card, nil
}

// Indicator computes an indicator of a market over the full fetched series, trimmed to the
// period's display window.
func (a *Analyzer) Indicator(ctx context.Context, market string, period shared.Period, interval shared.Interval, kind indicator.Kind) (*indicator.Output, error) {
	series, err := a.Series(ctx, market, period, interval)
	if err != nil {
		return nil, err
	}

	_, span := a.cfg.Tracer.Start(ctx, "indicator", trace.WithAttributes(
		attribute.String("market", market),
		attribute.String("kind", kind.String()),
	))

	p := a.cfg.Params.Params()
	out, err := indicator.Compute(series, kind, p.Indicator(kind))
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("computing %s for %s: %w", kind, market, err)
	}
	endSpan(span, nil)

	return out.From(displayStart(series, period)), nil
}

// Chart renders a chart of a market for the provided period and interval.
func (a *Analyzer) Chart(ctx context.Context, market string, period shared.Period, interval shared.Interval, kind chart.Kind, theme shared.Theme) ([]byte, error) {
	if kind == chart.CyclesKind && !period.ShowsCycles() {
		return nil, fmt.Errorf("%w: %s chart not available for period %s", shared.ErrInvalidRequest, kind, period)
	}

	series, err := a.Series(ctx, market, period, interval)
	if err != nil {
		return nil, err
	}

	_, span := a.cfg.Tracer.Start(ctx, "chart", trace.WithAttributes(
		attribute.String("market", market),
		attribute.String("kind", kind.String()),
		attribute.String("theme", theme.String()),
	))

	began := time.Now()
	b, err := a.cfg.Renderer.Render(series, a.cfg.Params.Params(), theme, displayStart(series, period), kind)
	a.cfg.Metrics.ChartRenderDur.Observe(time.Since(began).Seconds())
	a.cfg.Metrics.ChartsTotal.WithLabelValues(kind.String(), metrics.Result(err)).Inc()
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	return b, nil
}
