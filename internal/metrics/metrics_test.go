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

func TestReporterCounters(t *testing.T) {
	r := NewReporter()

	r.Kicked("slow")
	r.Kicked("slow")
	r.Kicked("stalled")
	r.KickFailed("signal")
	r.PassFailed()
	r.ObservePass(12, 3, 7, 2*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.kicksTotal.WithLabelValues("slow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kicksTotal.WithLabelValues("stalled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kickFailures.WithLabelValues("signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.passFailures))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.sessionsSampled))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.uploadsActive))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.historyRecords))
}

func TestReporterHandler(t *testing.T) {
	r := NewReporter()
	r.Kicked("zerobyte")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, endpointMetrics, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `slowkicker_kicks_total{category="zerobyte"} 1`), body)
	assert.True(t, strings.Contains(body, "slowkicker_pass_duration_seconds"), body)
}
