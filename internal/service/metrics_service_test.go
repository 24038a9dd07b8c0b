package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *MetricsService) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	return recorder.Body.String()
}

func TestMetricsServiceObserveGeneration(t *testing.T) {
	metrics := NewMetricsService()

	metrics.ObserveGeneration(GenerationOutcomeGenerated, 2*time.Millisecond, 10, 4)
	metrics.ObserveGeneration(GenerationOutcomeCached, 0, 10, 4)
	metrics.ObserveGeneration(GenerationOutcomeInvalid, 0, 0, 0)

	body := scrape(t, metrics)
	assert.Contains(t, body, `timetable_generations_total{outcome="generated"} 1`)
	assert.Contains(t, body, `timetable_generations_total{outcome="cached"} 1`)
	assert.Contains(t, body, `timetable_generations_total{outcome="invalid"} 1`)
	assert.Contains(t, body, "timetable_free_periods_total 4")
	assert.Contains(t, body, "timetable_fill_ratio_count 1")
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.ObserveCacheWrite(time.Millisecond)

	body := scrape(t, metrics)
	assert.Contains(t, body, "cache_hits_total 2")
	assert.Contains(t, body, "cache_misses_total 1")
	assert.Contains(t, body, "cache_write_seconds_count 1")
}

func TestMetricsServiceHandler(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/timetables/generate", http.StatusOK, time.Millisecond)
	metrics.ObserveVerification(false)
	metrics.ObserveExport("xlsx")

	body := scrape(t, metrics)
	assert.Contains(t, body, `http_requests_total{method="POST",path="/api/v1/timetables/generate",status="200"} 1`)
	assert.Contains(t, body, `timetable_verifications_total{valid="false"} 1`)
	assert.Contains(t, body, `timetable_exports_total{format="xlsx"} 1`)

	var nilMetrics *MetricsService
	nilMetrics.ObserveGeneration(GenerationOutcomeGenerated, time.Second, 1, 1)
	recorder := httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
