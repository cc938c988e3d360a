package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusExporter_Counters(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())

	e.ObserveAttempt("acme/m:free", "rate_limited", 100*time.Millisecond)
	e.ObserveAttempt("acme/m:free", "rate_limited", 100*time.Millisecond)
	e.ObserveAttempt("acme/m:free", "success", 2*time.Second)
	e.ObserveCatalog("miss")
	e.ObserveCatalog("hit")
	e.ObserveCatalog("hit")
	e.ObserveSend("finalized", 3*time.Second)
	e.ObserveSend("errored", 90*time.Second)
	e.ObserveTitle("failed")
	e.ObserveHTTP(http.MethodPost, "/api/v1/conversations/:id/messages", http.StatusOK, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.completionAttempts.WithLabelValues("acme/m:free", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.completionAttempts.WithLabelValues("acme/m:free", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.catalogLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.catalogLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.sends.WithLabelValues("errored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.titles.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.httpRequests.WithLabelValues("POST", "/api/v1/conversations/:id/messages", "200")))
}

func TestPrometheusExporter_Handler(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())
	e.ObserveAttempt("acme/m:free", "success", time.Second)
	e.ObserveCatalog("hit")
	e.ObserveSend("finalized", time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "askbox_llm_completion_attempts_total")
	assert.Contains(t, body, "askbox_catalog_lookups_total")
	assert.Contains(t, body, "askbox_chat_sends_total")
}

func TestPrometheusExporter_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewPrometheusExporter(Config{Registry: reg, WithRuntime: true})
	assert.Same(t, reg, e.GetRegistry())

	families, err := reg.Gather()
	require.NoError(t, err)
	var sawRuntime bool
	for _, mf := range families {
		if mf.GetName() == "go_goroutines" {
			sawRuntime = true
		}
	}
	assert.True(t, sawRuntime)
}

func BenchmarkObserveAttempt(b *testing.B) {
	e := NewPrometheusExporter(DefaultConfig())
	for i := 0; i < b.N; i++ {
		e.ObserveAttempt("acme/m:free", "success", 100*time.Millisecond)
	}
}
