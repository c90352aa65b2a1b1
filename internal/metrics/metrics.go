// Package metrics exports the watchdog's counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "slowkicker"
	endpointMetrics = "/metrics"
)

// Reporter owns the watchdog's collectors.
type Reporter struct {
	registry prometheus.Gatherer

	sessionsSampled prometheus.Gauge
	uploadsActive   prometheus.Gauge
	historyRecords  prometheus.Gauge
	kicksTotal      *prometheus.CounterVec
	kickFailures    *prometheus.CounterVec
	passFailures    prometheus.Counter
	passDuration    prometheus.Histogram
}

// NewReporter creates a reporter with a private registry.
func NewReporter() *Reporter {
	reg := prometheus.NewRegistry()
	r := newReporter(reg)
	r.registry = reg
	return r
}

func newReporter(reg prometheus.Registerer) *Reporter {
	r := &Reporter{
		sessionsSampled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_sampled",
			Help:      "Number of records in the online users table during the last pass.",
		}),
		uploadsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_active",
			Help:      "Number of live uploads seen during the last pass.",
		}),
		historyRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Number of (user, path) pairs held in the kick history.",
		}),
		// kicksTotal is labeled by category: "slow", "zerobyte" or "stalled".
		kicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kicks_total",
			Help:      "Total number of uploads kicked, labeled by category.",
		}, []string{"category"}),
		// kickFailures is labeled by the enforcement step that failed.
		kickFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kick_failures_total",
			Help:      "Total number of kicks aborted, labeled by failing step.",
		}, []string{"step"}),
		passFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_failures_total",
			Help:      "Total number of passes aborted because the online table could not be read.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Time spent on one sampling and enforcement pass.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}

	reg.MustRegister(
		r.sessionsSampled,
		r.uploadsActive,
		r.historyRecords,
		r.kicksTotal,
		r.kickFailures,
		r.passFailures,
		r.passDuration,
	)
	return r
}

// ObservePass records the outcome of one pass.
func (r *Reporter) ObservePass(sampled, active, historyLen int, elapsed time.Duration) {
	r.sessionsSampled.Set(float64(sampled))
	r.uploadsActive.Set(float64(active))
	r.historyRecords.Set(float64(historyLen))
	r.passDuration.Observe(elapsed.Seconds())
}

// PassFailed counts a pass aborted by a sampling failure.
func (r *Reporter) PassFailed() {
	r.passFailures.Inc()
}

// Kicked counts a successful kick.
func (r *Reporter) Kicked(category string) {
	r.kicksTotal.WithLabelValues(category).Inc()
}

// KickFailed counts a kick aborted at step.
func (r *Reporter) KickFailed(step string) {
	r.kickFailures.WithLabelValues(step).Inc()
}

// Handler returns the HTTP handler serving the reporter's registry.
func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Reporter) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle(endpointMetrics, r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("[metrics] serving %s on %s", endpointMetrics, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[metrics] server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
