package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/observability"
)

func TestRecordersEmitWhenEnabled(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	previous := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = previous })

	RecordAdmission("thumbnail", AdmissionAdmitted)
	RecordAdmission("thumbnail", AdmissionBypassed)
	RecordClientFailure("generate_thumbnail", "client-http")
	RecordBackendCall("generate_style", 40*time.Millisecond)
	RecordOperation("library_list", true)
	RecordOperationError("library_save", "database")
	RecordHealthCheck("store", true, time.Millisecond)
	SetActiveConnections(3)
	RecordPanic()

	admissions := collector.GetMetricsByName(AdmissionsTotal)
	require.Len(t, admissions, 2)
	require.Equal(t, AdmissionBypassed, admissions[1].Tags["result"])
	require.Equal(t, 1, collector.CountMetricsByName(ClientFailuresTotal))
	require.Equal(t, 1, collector.CountMetricsByName(BackendDuration))
	require.Equal(t, 1, collector.CountMetricsByName(OperationsTotal))
	require.Equal(t, 1, collector.CountMetricsByName(OperationsErrorsTotal))
	require.Equal(t, 1, collector.CountMetricsByName(HealthCheckTotal))
	require.Equal(t, 1, collector.CountMetricsByName(HealthCheckDuration))
	require.Equal(t, 1, collector.CountMetricsByName(ActiveConnections))
	require.Equal(t, 1, collector.CountMetricsByName(PanicsTotal))
}

func TestRecordersAreNoOpsWhenDisabled(t *testing.T) {
	previous := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = previous })

	require.NotPanics(t, func() {
		RecordAdmission("style", AdmissionDenied)
		RecordError("RATE_LIMITED", 429)
		SetServerStartTime(time.Now().Unix())
	})
}
