package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/faultline/internal/analysis"
	"github.com/kamilpajak/faultline/pkg/models"
)

func outcome() *analysis.Outcome {
	out := &analysis.Outcome{
		Duration: 3 * time.Second,
		Attempts: []analysis.Attempt{
			{Provider: "openai", Number: 1, Duration: time.Second, Error: "openai: timeout"},
			{Provider: "openai", Number: 2, Duration: 2 * time.Second},
		},
		Result: &models.AnalysisResult{
			Provider:   "openai",
			Confidence: 80,
			Outcome:    models.OutcomeSuccess,
			TokenUsage: models.TokenUsage{Input: 100, Output: 25, Total: 125},
		},
	}
	out.Context.RedactionsByCategory = map[string]int{"secret": 2, "url": 1}
	return out
}

func TestObserve(t *testing.T) {
	r := New()
	r.Observe(outcome())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("success", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("openai", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("openai", "ok")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.tokensTotal.WithLabelValues("openai", "input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.redactionsTotal.WithLabelValues("secret")))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.confidence))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.runDuration))
}

func TestObserve_CachedSkipsTokens(t *testing.T) {
	r := New()
	out := outcome()
	out.Result.Cached = true
	out.Attempts = nil
	r.Observe(out)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("success", "true")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.tokensTotal))
}

func TestObserve_Nil(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Observe(nil) })
	assert.NotPanics(t, func() { r.Observe(&analysis.Outcome{}) })
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Observe(outcome())

	path := filepath.Join(t.TempDir(), "faultline.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `faultline_runs_total{cached="false",outcome="success"} 1`)
	assert.Contains(t, string(data), "# TYPE faultline_provider_attempt_duration_seconds histogram")
}
