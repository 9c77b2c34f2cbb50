// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extractor metrics
	extractorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbridge_extractor_runs_total",
		Help: "Extractor invocations by mode and outcome",
	}, []string{"mode", "outcome"}) // mode=local|remote, outcome=success|failure

	extractorDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytbridge_extractor_duration_seconds",
		Help:    "Wall time of a single extractor invocation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	extractorNetFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbridge_extractor_net_fallbacks_total",
		Help: "Times the extractor retried with the opposite network family",
	})

	// Cache metrics
	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbridge_cache_ops_total",
		Help: "Probe cache operations by result",
	}, []string{"result"}) // result=hit|miss|store

	// Proxy metrics
	playRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbridge_play_requests_total",
		Help: "Playback requests by selection kind and delivery mode",
	}, []string{"kind", "mode"}) // kind=muxed|split|hls, mode=proxy|redirect|remux|fallback

	proxyRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbridge_proxy_refreshes_total",
		Help: "Signed-URL refresh cycles by outcome",
	}, []string{"outcome"}) // outcome=recovered|failed

	proxyBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbridge_proxy_bytes_total",
		Help: "Bytes relayed from the media origin to consumers",
	})

	// Remux metrics
	remuxActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytbridge_remux_active",
		Help: "Currently running remux subprocesses",
	})

	remuxRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbridge_remux_runs_total",
		Help: "Remux subprocess runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure|cancelled
)

// IncExtractorRun records one extractor invocation.
func IncExtractorRun(mode, outcome string) {
	extractorRunsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveExtractorDuration records the wall time of an extractor invocation.
func ObserveExtractorDuration(d time.Duration) {
	extractorDurationSeconds.Observe(d.Seconds())
}

// IncExtractorNetFallback records a network-family retry.
func IncExtractorNetFallback() {
	extractorNetFallbacksTotal.Inc()
}

// IncCacheOp records a probe cache operation result.
func IncCacheOp(result string) {
	cacheOpsTotal.WithLabelValues(result).Inc()
}

// IncPlayRequest records a playback request.
func IncPlayRequest(kind, mode string) {
	playRequestsTotal.WithLabelValues(kind, mode).Inc()
}

// IncProxyRefresh records a signed-URL refresh cycle.
func IncProxyRefresh(outcome string) {
	proxyRefreshesTotal.WithLabelValues(outcome).Inc()
}

// AddProxyBytes records bytes relayed downstream.
func AddProxyBytes(n int64) {
	if n > 0 {
		proxyBytesTotal.Add(float64(n))
	}
}

// IncRemuxActive tracks a remux subprocess starting.
func IncRemuxActive() { remuxActive.Inc() }

// DecRemuxActive tracks a remux subprocess exiting.
func DecRemuxActive() { remuxActive.Dec() }

// IncRemuxRun records one remux run outcome.
func IncRemuxRun(outcome string) {
	remuxRunsTotal.WithLabelValues(outcome).Inc()
}
