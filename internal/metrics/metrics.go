// Package metrics provides Prometheus metrics for the voice bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No call_sid or session ids in labels.

var (
	// TurnsTotal counts rendered turns by the resolved voice action.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicebridge",
		Name:      "turns_total",
		Help:      "Total number of call turns answered, by voice action.",
	}, []string{"action"})

	// EngineErrorsTotal counts failed dialogue-engine exchanges.
	EngineErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicebridge",
		Name:      "engine_errors_total",
		Help:      "Total number of dialogue engine requests that failed.",
	})

	// EngineRequestDuration tracks dialogue-engine round trips.
	EngineRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voicebridge",
		Name:      "engine_request_duration_seconds",
		Help:      "Latency of dialogue engine requests.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// OutboundCallsTotal counts outbound dispatch attempts by result.
	OutboundCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicebridge",
		Name:      "outbound_calls_total",
		Help:      "Total number of outbound call dispatches, by result.",
	}, []string{"result"})

	// SessionsActive is the current number of tracked calls.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voicebridge",
		Name:      "sessions_active",
		Help:      "Current number of calls held in the session registry.",
	})

	// SessionEvictions is the cumulative number of registry evictions.
	SessionEvictions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voicebridge",
		Name:      "session_evictions",
		Help:      "Cumulative number of calls evicted from the session registry (expiry or capacity).",
	})
)

// Outbound results.
const (
	OutboundPlaced    = "placed"
	OutboundFailed    = "failed"
	OutboundDuplicate = "duplicate"
	OutboundInvalid   = "invalid"
	OutboundDisabled  = "disabled"
)

// ObserveSessions publishes a registry snapshot.
func ObserveSessions(size int, evictions int64) {
	SessionsActive.Set(float64(size))
	SessionEvictions.Set(float64(evictions))
}
