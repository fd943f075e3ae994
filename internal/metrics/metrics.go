// Package metrics records thumbsmith's counters, gauges and histograms on
// observability.TelemetrySystem. Every recorder is a no-op while telemetry
// is disabled.
package metrics

import (
	"strconv"
	"time"

	"github.com/thumbsmith/thumbsmith/internal/observability"
)

// Metric names.
const (
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"
	ActiveConnections     = "app_active_connections"
	HealthCheckTotal      = "app_health_check_total"
	HealthCheckDuration   = "app_health_check_duration_ms"
	ServerStartTime       = "app_server_start_time_seconds"

	AdmissionsTotal     = "genclient_admissions_total"
	ClientFailuresTotal = "genclient_failures_total"
	BackendDuration     = "genclient_backend_duration_ms"

	ErrorsTotal      = "errors_total"
	ErrorsByEndpoint = "errors_by_endpoint"
	PanicsTotal      = "panics_total"
)

type labels = map[string]string

func count(name string, l labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, l)
	}
}

func gauge(name string, value float64, l labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, l)
	}
}

func observe(name string, d time.Duration, l labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, l)
	}
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Admission results.
const (
	AdmissionAdmitted = "admitted"
	AdmissionDenied   = "denied"
	// AdmissionBypassed marks a request let through because the window
	// store failed; the quota was not enforced for it.
	AdmissionBypassed = "bypassed"
)

// RecordAdmission counts a limiter decision for an endpoint kind.
func RecordAdmission(kind, result string) {
	count(AdmissionsTotal, labels{"kind": kind, "result": result})
}

// RecordClientFailure counts a classified generation client failure.
func RecordClientFailure(operation, origin string) {
	count(ClientFailuresTotal, labels{"operation": operation, "origin": origin})
}

// RecordBackendCall times one backend round trip.
func RecordBackendCall(operation string, d time.Duration) {
	observe(BackendDuration, d, labels{"operation": operation})
}

// RecordOperation counts a client, library or studio operation.
func RecordOperation(operation string, success bool) {
	count(OperationsTotal, labels{"operation": operation, "status": outcome(success, "success", "failure")})
}

// RecordOperationError counts an operation that failed for a local reason
// such as the database.
func RecordOperationError(operation, errorType string) {
	count(OperationsErrorsTotal, labels{"operation": operation, "error_type": errorType})
}

// RecordHealthCheck counts and times one health check run.
func RecordHealthCheck(check string, healthy bool, d time.Duration) {
	count(HealthCheckTotal, labels{"check": check, "status": outcome(healthy, "healthy", "unhealthy")})
	observe(HealthCheckDuration, d, labels{"check": check})
}

// SetActiveConnections reports open HTTP connections.
func SetActiveConnections(n int64) {
	gauge(ActiveConnections, float64(n), nil)
}

// SetServerStartTime reports the server start as a Unix timestamp.
func SetServerStartTime(unix int64) {
	gauge(ServerStartTime, float64(unix), nil)
}

// RecordError counts an error response by envelope code and status.
func RecordError(code string, status int) {
	count(ErrorsTotal, labels{"error_code": code, "http_status": strconv.Itoa(status)})
}

// RecordErrorByEndpoint counts an error response by request path.
func RecordErrorByEndpoint(endpoint, code string) {
	count(ErrorsByEndpoint, labels{"endpoint": endpoint, "error_code": code})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	count(PanicsTotal, nil)
}
