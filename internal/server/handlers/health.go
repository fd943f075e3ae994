package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/thumbsmith/thumbsmith/internal/metrics"
)

// Check results and aggregate statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse is the body of the live, ready and startup endpoints.
type StatusResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is anything that can report its own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

// CheckHealth implements HealthChecker.
func (f CheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type registeredCheck struct {
	checker  HealthChecker
	optional bool
}

// HealthManager runs the registered checks for the health endpoints.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]registeredCheck
	version string
}

// NewHealthManager returns a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{checks: map[string]registeredCheck{}, version: version}
}

// RegisterChecker adds a check whose failure makes the service unhealthy.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(name, checker, false)
}

// RegisterOptional adds a check whose failure only degrades the service,
// for dependencies the service can run without.
func (hm *HealthManager) RegisterOptional(name string, checker HealthChecker) {
	hm.register(name, checker, true)
}

func (hm *HealthManager) register(name string, checker HealthChecker, optional bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = registeredCheck{checker: checker, optional: optional}
}

// runHealthChecks runs checks in name order until ctx ends. Checks not
// reached before the deadline report timeout.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	checks := make(map[string]registeredCheck, len(hm.checks))
	for name, c := range hm.checks {
		checks[name] = c
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			results[name] = StatusTimeout
			continue
		}

		c := checks[name]
		start := time.Now()
		err := c.checker.CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))

		switch {
		case err == nil:
			results[name] = StatusHealthy
		case c.optional:
			results[name] = StatusDegraded
		default:
			results[name] = StatusUnhealthy
		}
	}
	return results
}

// determineOverallStatus folds check results: any unhealthy wins, then any
// degraded or timed out.
func (hm *HealthManager) determineOverallStatus(results map[string]string) string {
	status := StatusHealthy
	for _, result := range results {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

// HealthHandler serves GET /health with per-check results.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := hm.runHealthChecks(ctx)
	status := hm.determineOverallStatus(results)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthEnvelope("aggregate health check failed", "", status, results))
		return
	}

	writeHealthJSON(w, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	})
}

// endpointHandler builds a Kubernetes-style live/ready/startup handler with its own deadline.
func (hm *HealthManager) endpointHandler(name string, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results := hm.runHealthChecks(ctx)
		status := hm.determineOverallStatus(results)
		if status == StatusUnhealthy {
			respondWithError(w, r, healthEnvelope(name+" check failed", name, status, results))
			return
		}
		writeHealthJSON(w, StatusResponse{Status: status, Timestamp: time.Now().UTC()})
	}
}

// LivenessHandler serves GET /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.endpointHandler("live", 2*time.Second)(w, r)
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.endpointHandler("ready", 5*time.Second)(w, r)
}

// StartupHandler serves GET /health/startup.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.endpointHandler("startup", 3*time.Second)(w, r)
}

func writeHealthJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func healthEnvelope(message, endpoint, status string, results map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status}
	ctxData := map[string]interface{}{"status": status}
	if endpoint != "" {
		details["endpoint"] = endpoint
		ctxData["endpoint"] = endpoint
	}
	if len(results) > 0 {
		details["checks"] = results
	}

	var failing []string
	for name, result := range results {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		ctxData["unhealthy_checks"] = failing
	}

	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message).WithDetails(details)
	if updated, err := envelope.WithContext(ctxData); err == nil {
		envelope = updated
	}
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the manager behind the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the manager set by InitHealthManager.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// global dispatches to the package manager, or reports 503 before serve has
// set one up.
func global(endpoint string, handler func(*HealthManager) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			handler(hm)(w, r)
			return
		}
		respondWithError(w, r, healthEnvelope("health manager not initialized", endpoint, "unknown", nil))
	}
}

var (
	// HealthHandler serves /health from the global manager.
	HealthHandler = global("aggregate", func(hm *HealthManager) http.HandlerFunc { return hm.HealthHandler })
	// LivenessHandler serves /health/live from the global manager.
	LivenessHandler = global("live", func(hm *HealthManager) http.HandlerFunc { return hm.LivenessHandler })
	// ReadinessHandler serves /health/ready from the global manager.
	ReadinessHandler = global("ready", func(hm *HealthManager) http.HandlerFunc { return hm.ReadinessHandler })
	// StartupHandler serves /health/startup from the global manager.
	StartupHandler = global("startup", func(hm *HealthManager) http.HandlerFunc { return hm.StartupHandler })
)
