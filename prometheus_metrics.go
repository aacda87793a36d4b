package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DecodeMetrics holds the Prometheus collectors exposed by the live-decode
// server, labeled by the sstv.Mode name in use.
type DecodeMetrics struct {
	sessionsActive   prometheus.Gauge
	chunksReceived   *prometheus.CounterVec
	decodesFinished  *prometheus.CounterVec
	decodesPartial   *prometheus.CounterVec
	headerMismatches *prometheus.CounterVec
	decodeLatency    *prometheus.HistogramVec
}

// NewDecodeMetrics registers the decode-session collectors with the default
// Prometheus registry.
func NewDecodeMetrics() *DecodeMetrics {
	return &DecodeMetrics{
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sstv_sessions_active",
			Help: "Number of websocket decode sessions currently connected.",
		}),
		chunksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sstv_chunks_received_total",
			Help: "Audio chunks fed into Decode, by mode.",
		}, []string{"mode"}),
		decodesFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sstv_decodes_finished_total",
			Help: "Decode calls that returned Finished, by mode.",
		}, []string{"mode"}),
		decodesPartial: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sstv_decodes_partial_total",
			Help: "Decode calls that returned Partial, by mode.",
		}, []string{"mode"}),
		headerMismatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sstv_header_none_found_total",
			Help: "Decode calls that returned NoneFound, by mode.",
		}, []string{"mode"}),
		decodeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sstv_decode_seconds",
			Help:    "Wall-clock time spent inside Decode per call, by mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *DecodeMetrics) Handler() http.Handler {
	return promhttp.Handler()
}
