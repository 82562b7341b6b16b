package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAgainstGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Operations.WithLabelValues("create", "ok").Inc()
	m.Transitions.WithLabelValues("DRAFT", "PENDING_CASE_CREATION_APPROVAL").Inc()
	m.AuditWriteFailures.Inc()
	m.LeaseWait.Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cases_lifecycle_operations_total")
	assert.Contains(t, names, "cases_lifecycle_transitions_total")
	assert.Contains(t, names, "cases_audit_write_failures_total")
	assert.Contains(t, names, "cases_lifecycle_lease_wait_seconds")
}

func TestNewMetrics_TwoRegistriesDoNotConflict(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopMetrics()
		NewNopMetrics()
	})
}

func TestTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}
