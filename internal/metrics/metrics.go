// Package metrics records per-run analysis metrics and writes them in the
// Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kamilpajak/faultline/internal/analysis"
)

// Recorder holds the collectors of one process.
type Recorder struct {
	reg *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	redactionsTotal *prometheus.CounterVec
	runDuration     prometheus.Gauge
	confidence      prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_runs_total",
			Help: "Analysis runs by outcome and cache use.",
		}, []string{"outcome", "cached"}),
		attemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_provider_attempts_total",
			Help: "Provider calls by provider and result.",
		}, []string{"provider", "result"}),
		attemptDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faultline_provider_attempt_duration_seconds",
			Help:    "Duration of provider calls in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		tokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_tokens_total",
			Help: "Tokens consumed by provider and direction.",
		}, []string{"provider", "type"}),
		redactionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_redactions_total",
			Help: "Sensitive substrings replaced, by category.",
		}, []string{"category"}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "faultline_last_run_duration_seconds",
			Help: "Wall time of the most recent run.",
		}),
		confidence: f.NewGauge(prometheus.GaugeOpts{
			Name: "faultline_last_run_confidence",
			Help: "Confidence of the most recent diagnosis (0-100).",
		}),
	}
}

// Observe records the outcome of one run.
func (r *Recorder) Observe(out *analysis.Outcome) {
	if out == nil || out.Result == nil {
		return
	}
	res := out.Result

	r.runsTotal.WithLabelValues(string(res.Outcome), strconv.FormatBool(res.Cached)).Inc()
	r.runDuration.Set(out.Duration.Seconds())
	r.confidence.Set(float64(res.Confidence))

	for _, a := range out.Attempts {
		result := "ok"
		if a.Error != "" {
			result = "error"
		}
		r.attemptsTotal.WithLabelValues(a.Provider, result).Inc()
		r.attemptDuration.WithLabelValues(a.Provider).Observe(a.Duration.Seconds())
	}

	if !res.Cached && !res.Degraded() {
		r.tokensTotal.WithLabelValues(res.Provider, "input").Add(float64(res.TokenUsage.Input))
		r.tokensTotal.WithLabelValues(res.Provider, "output").Add(float64(res.TokenUsage.Output))
	}

	for category, n := range out.Context.RedactionsByCategory {
		r.redactionsTotal.WithLabelValues(category).Add(float64(n))
	}
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes the current metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
