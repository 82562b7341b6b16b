// Package observability provides the Prometheus metrics and tracer used by
// the case lifecycle.
//
// Metrics are registered against an explicit registerer so tests can use an
// isolated registry; services pass prometheus.DefaultRegisterer and expose
// it on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricsNamespace = "cases"
	tracerName       = "alert-case-service/lifecycle"
)

// Metrics holds every counter and histogram the service records.
type Metrics struct {
	// Operations counts lifecycle operations by action and outcome
	// (ok or the apperr kind).
	Operations *prometheus.CounterVec

	// OperationDuration measures whole operations including side effects.
	OperationDuration *prometheus.HistogramVec

	// Transitions counts committed status changes by from and to status.
	Transitions *prometheus.CounterVec

	// SideEffectFailures counts task or workflow effects that failed after
	// the case was persisted. Labels: effect (tasks, workflow).
	SideEffectFailures *prometheus.CounterVec

	// AuditWriteFailures counts audit entries that could not be appended.
	AuditWriteFailures prometheus.Counter

	// LeaseWait measures how long operations waited for a case lease.
	LeaseWait prometheus.Histogram

	// TasksOpened counts tasks created by kind.
	TasksOpened *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Lifecycle operations by action and outcome",
		}, []string{"action", "outcome"}),

		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "lifecycle",
			Name:      "operation_duration_seconds",
			Help:      "Duration of lifecycle operations including side effects",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"action"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Committed case status changes",
		}, []string{"from", "to"}),

		SideEffectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lifecycle",
			Name:      "side_effect_failures_total",
			Help:      "Side effects that failed after the case was persisted",
		}, []string{"effect"}),

		AuditWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Audit entries that could not be appended",
		}),

		LeaseWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "lifecycle",
			Name:      "lease_wait_seconds",
			Help:      "Time spent waiting for a per-case lease",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		TasksOpened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "tasks",
			Name:      "opened_total",
			Help:      "Tasks opened by kind",
		}, []string{"kind"}),
	}
}

// NewNopMetrics returns metrics registered against a throwaway registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Tracer returns the tracer lifecycle spans are started from.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
