// Package observability exposes Prometheus metrics for upstream calls and
// prediction outcomes.
package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"geoprompt/internal/llmclient"
)

var (
	// UpstreamRequestsTotal counts upstream attempts by provider and status.
	// status is the HTTP code, or "error" when no response arrived.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoprompt_upstream_requests_total",
			Help: "Total upstream chat completion attempts",
		},
		[]string{"provider", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoprompt_upstream_request_duration_seconds",
			Help:    "Upstream chat completion latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	UpstreamRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geoprompt_upstream_requests_in_flight",
			Help: "Upstream chat completion attempts currently in progress",
		},
		[]string{"provider"},
	)

	// PredictionsTotal counts predictions by outcome ("object", "not_json",
	// "provider_error", ...).
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoprompt_predictions_total",
			Help: "Total predictions that reached the upstream, by outcome",
		},
		[]string{"outcome"},
	)
)

// NewPrometheusHooks returns llmclient hooks that record upstream metrics.
func NewPrometheusHooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestStart: func(ctx context.Context, info llmclient.RequestInfo) context.Context {
			UpstreamRequestsInFlight.WithLabelValues(info.Provider).Inc()
			return ctx
		},
		OnRequestEnd: func(_ context.Context, info llmclient.ResponseInfo) {
			UpstreamRequestsInFlight.WithLabelValues(info.Provider).Dec()
			UpstreamRequestsTotal.WithLabelValues(info.Provider, statusLabel(info)).Inc()
			UpstreamRequestDuration.WithLabelValues(info.Provider).Observe(info.Duration.Seconds())
		},
	}
}

// RecordPrediction increments PredictionsTotal for outcome.
func RecordPrediction(outcome string) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
}

func statusLabel(info llmclient.ResponseInfo) string {
	if info.StatusCode == 0 {
		return "error"
	}
	return strconv.Itoa(info.StatusCode)
}
