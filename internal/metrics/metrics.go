// Package metrics exposes the monitor's Prometheus instruments. A nil
// *Metrics is valid and records nothing, so components can run without a
// registry in tests and one-shot commands.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cycles        prometheus.Counter
	cycleFailures prometheus.Counter
	sourceLatency *prometheus.HistogramVec
	safe          prometheus.Gauge
	ledgerSize    prometheus.Gauge
	warnings      *prometheus.CounterVec
	relayCommands *prometheus.CounterVec
	relayLatency  prometheus.Histogram
	authAttempts  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safewatch_acquisition_cycles_total",
			Help: "Acquisition cycles that produced a snapshot.",
		}),
		cycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safewatch_acquisition_failures_total",
			Help: "Acquisition cycles aborted by a query failure.",
		}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safewatch_source_query_seconds",
			Help:    "Latency of the latest-row query per source.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"source"}),
		safe: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "safewatch_safe",
			Help: "1 when the last verdict was safe, 0 otherwise.",
		}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "safewatch_ledger_entries",
			Help: "Entries currently held by the warning ledger.",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safewatch_warnings_total",
			Help: "New warning ledger entries by alert kind.",
		}, []string{"kind"}),
		relayCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safewatch_relay_commands_total",
			Help: "Lock commands by intent and outcome.",
		}, []string{"intent", "outcome"}),
		relayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "safewatch_relay_latency_seconds",
			Help:    "Round trip of signed actuator requests.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safewatch_gate_attempts_total",
			Help: "Password gate attempts by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safewatch_notifications_total",
			Help: "Password attempt notifications by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.cycles, m.cycleFailures, m.sourceLatency, m.safe, m.ledgerSize,
			m.warnings, m.relayCommands, m.relayLatency, m.authAttempts, m.notifications,
		)
	}
	return m
}

func (m *Metrics) CycleCompleted(safe bool, ledgerLen int) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	if safe {
		m.safe.Set(1)
	} else {
		m.safe.Set(0)
	}
	m.ledgerSize.Set(float64(ledgerLen))
}

func (m *Metrics) CycleFailed() {
	if m == nil {
		return
	}
	m.cycleFailures.Inc()
}

func (m *Metrics) ObserveSource(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.sourceLatency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) Warning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}

// RelayCommand records one relay outcome: "ok", "rejected", "error" or
// "pending".
func (m *Metrics) RelayCommand(intent, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.relayCommands.WithLabelValues(intent, outcome).Inc()
	if d > 0 {
		m.relayLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) AuthAttempt(success bool) {
	if m == nil {
		return
	}
	if success {
		m.authAttempts.WithLabelValues("success").Inc()
		return
	}
	m.authAttempts.WithLabelValues("failure").Inc()
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.notifications.WithLabelValues("failed").Inc()
		return
	}
	m.notifications.WithLabelValues("sent").Inc()
}
