package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := New()

	m.CacheLookup("local")
	m.CacheLookup("local")
	m.CacheLookup("generated")
	m.Generation(true, 500*time.Millisecond)
	m.Generation(false, time.Second)
	m.RemoteWrite(false)
	m.WarmItem(true)
	m.Analysis("respond", true, 2*time.Second)
	m.LLMUsage("openai", 120, 40, 0.00004)
	m.LLMUsage("openai", 80, 10, 0.00002)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteWrites.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warmItems.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("respond", "success")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("openai", "input")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("openai", "output")))
	assert.InDelta(t, 0.00006, testutil.ToFloat64(m.llmCost.WithLabelValues("openai")), 1e-12)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("local")
		m.Generation(true, time.Second)
		m.RemoteWrite(true)
		m.WarmItem(false)
		m.Analysis("session", false, time.Second)
		m.LLMUsage("anthropic", 1, 1, 0.1)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.CacheLookup("remote")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tts_cache_lookups_total{tier="remote"} 1`))
}
