package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.ObserveAIRequest("ollama", "generate", "ok", 150*time.Millisecond)
	m.ObserveAIRequest("ollama", "generate", "failed", time.Second)
	m.RecordFallback("cultural")
	m.RecordCacheLookup("variations", true)
	m.RecordCacheLookup("variations", false)
	m.RecordCacheLookup("variations", false)
	m.RecordPair("failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequestsTotal.WithLabelValues("ollama", "generate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("cultural")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("variations", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankPairsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AIRequestDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAIRequest("gemini", "embed", "ok", time.Millisecond)
		m.RecordFallback("semantic")
		m.RecordCacheLookup("variations", true)
		m.ObserveMatch(time.Millisecond)
		m.RecordPair("ok")
		m.RecordHTTPRequest("GET", "/healthz", "200")
	})
}

func TestDisabledTracing(t *testing.T) {
	setup, err := NewTracerSetup(context.Background(), &TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, setup)

	_, span := setup.Tracer().Start(context.Background(), "match")
	span.End()
	assert.NoError(t, setup.Shutdown(context.Background()))
}
