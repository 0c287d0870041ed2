// Package metrics holds the monitor's Prometheus instrumentation: sessions
// observed, per-sink-kind dispatch outcomes, and tailer health. Grounded on
// the teacher's internal/metrics Collector shape (one struct of pre-built
// vectors, registered once against a caller-supplied Registerer, with
// Inc/Observe-style methods so callers never touch a prometheus type
// directly), generalized from BFD session/packet/auth metrics to the
// glider monitor's domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "glidermon"
	subsystem = "monitor"
)

// Label names.
const (
	labelGliderID = "glider_id"
	labelSinkKind = "sink_kind"
	labelEvent    = "event_kind"
)

// Collector holds every Prometheus metric the monitor emits.
type Collector struct {
	// SessionsObserved counts Connected callbacks, labeled by glider id.
	// A reconnect within the same session does not increment this; only a
	// fresh Connected does.
	SessionsObserved *prometheus.CounterVec

	// SessionsActive reports whether a session is currently open (1) or
	// not (0) for the glider id the monitor is watching. There is only
	// ever one label value in practice (one monitor per mission), but the
	// label keeps the metric self-describing without a separate /status
	// lookup.
	SessionsActive *prometheus.GaugeVec

	// DispatchesSent counts successful sink sends, labeled by sink kind
	// and event kind.
	DispatchesSent *prometheus.CounterVec

	// DispatchesFailed counts sink sends that returned an error or
	// panicked (isolated per invariant 5), labeled by sink kind and event
	// kind.
	DispatchesFailed *prometheus.CounterVec

	// TailerConsecutiveFailures mirrors tailer.Tailer.ConsecutiveFailures()
	// after every pass, so an operator can alert before the monitor hits
	// tailer.MaxConsecutiveFailures and terminates.
	TailerConsecutiveFailures prometheus.Gauge

	// TailerLinesRead counts lines returned by the tailer across all
	// passes.
	TailerLinesRead prometheus.Counter
}

// NewCollector creates a Collector with every metric registered against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.SessionsObserved,
		c.SessionsActive,
		c.DispatchesSent,
		c.DispatchesFailed,
		c.TailerConsecutiveFailures,
		c.TailerLinesRead,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		SessionsObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_observed_total",
			Help:      "Total glider radio sessions observed (Connected callbacks).",
		}, []string{labelGliderID}),

		SessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_active",
			Help:      "1 while a glider session is open, 0 otherwise.",
		}, []string{labelGliderID}),

		DispatchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatches_sent_total",
			Help:      "Total notifications successfully sent, by sink kind and event kind.",
		}, []string{labelSinkKind, labelEvent}),

		DispatchesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatches_failed_total",
			Help:      "Total notifications that failed or panicked, by sink kind and event kind.",
		}, []string{labelSinkKind, labelEvent}),

		TailerConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tailer_consecutive_failures",
			Help:      "Consecutive tailer I/O failures since the last successful pass.",
		}),

		TailerLinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tailer_lines_read_total",
			Help:      "Total complete log lines read across all tailer passes.",
		}),
	}
}

// RecordConnected increments SessionsObserved and sets SessionsActive to 1
// for gliderID.
func (c *Collector) RecordConnected(gliderID string) {
	c.SessionsObserved.WithLabelValues(gliderID).Inc()
	c.SessionsActive.WithLabelValues(gliderID).Set(1)
}

// RecordDisconnected sets SessionsActive to 0 for gliderID.
func (c *Collector) RecordDisconnected(gliderID string) {
	c.SessionsActive.WithLabelValues(gliderID).Set(0)
}

// RecordDispatchSent increments DispatchesSent for one sink kind/event kind
// pair.
func (c *Collector) RecordDispatchSent(sinkKind, eventKind string) {
	c.DispatchesSent.WithLabelValues(sinkKind, eventKind).Inc()
}

// RecordDispatchFailed increments DispatchesFailed for one sink kind/event
// kind pair.
func (c *Collector) RecordDispatchFailed(sinkKind, eventKind string) {
	c.DispatchesFailed.WithLabelValues(sinkKind, eventKind).Inc()
}

// RecordTailerPass updates the tailer gauges after one poll: lines is the
// number of lines the pass returned, consecutiveFailures the tailer's
// current streak (0 after any successful pass).
func (c *Collector) RecordTailerPass(lines, consecutiveFailures int) {
	c.TailerLinesRead.Add(float64(lines))
	c.TailerConsecutiveFailures.Set(float64(consecutiveFailures))
}
