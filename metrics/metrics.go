package metrics

import (
	"net/http"
	"strconv"

	"github.com/dnldd/impulse/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus metrics of the service.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal     *prometheus.CounterVec // labels: interval, result
	FetchDur         prometheus.Histogram
	EvaluationsTotal prometheus.Counter
	EvaluationDur    prometheus.Histogram
	OutcomesTotal    *prometheus.CounterVec // labels: kind, score
	ChartsTotal      *prometheus.CounterVec // labels: kind, result
	ChartRenderDur   prometheus.Histogram

	// Screener
	ScreenerRuns     prometheus.Counter
	ScreenerDrops    prometheus.Counter
	ScreenerPending  prometheus.Gauge
	ReportsPersisted *prometheus.CounterVec // labels: result
}

// NewMetrics creates and registers the service metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_fetches_total",
			Help: "Series fetches by interval and result",
		}, []string{"interval", "result"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impulse_fetch_duration_seconds",
			Help:    "Series fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impulse_evaluations_total",
			Help: "Score cards evaluated",
		}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impulse_evaluation_duration_seconds",
			Help:    "Score card evaluation latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_outcomes_total",
			Help: "Signal outcomes by kind and score",
		}, []string{"kind", "score"}),
		ChartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_charts_total",
			Help: "Charts rendered by kind and result",
		}, []string{"kind", "result"}),
		ChartRenderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impulse_chart_render_duration_seconds",
			Help:    "Chart render latency",
			Buckets: prometheus.DefBuckets,
		}),

		ScreenerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impulse_screener_runs_total",
			Help: "Watchlist screener runs",
		}),
		ScreenerDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impulse_screener_drops_total",
			Help: "Screener reviews dropped because the queue was at capacity",
		}),
		ScreenerPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "impulse_screener_pending",
			Help: "Screener reviews queued or in flight",
		}),
		ReportsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impulse_reports_persisted_total",
			Help: "Score cards persisted by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.FetchesTotal,
		m.FetchDur,
		m.EvaluationsTotal,
		m.EvaluationDur,
		m.OutcomesTotal,
		m.ChartsTotal,
		m.ChartRenderDur,
		m.ScreenerRuns,
		m.ScreenerDrops,
		m.ScreenerPending,
		m.ReportsPersisted,
	)

	return m
}

// Result returns the result label of the provided error.
func Result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}

// ObserveCard records the outcomes of an evaluated score card.
func (m *Metrics) ObserveCard(card *score.Card) {
	m.EvaluationsTotal.Inc()
	for idx := range card.Outcomes {
		outcome := &card.Outcomes[idx]
		label := "failed"
		if !outcome.Failed() {
			label = strconv.Itoa(int(outcome.Score))
		}
		m.OutcomesTotal.WithLabelValues(outcome.Kind.String(), label).Inc()
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the http handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
