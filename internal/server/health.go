package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/giantswarm/mcp-redmine/internal/logging"
)

// HealthChecker provides liveness and readiness endpoints for the HTTP transports.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse adds upstream and runtime details to the health status.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Version         string                      `json:"version,omitempty"`
	Uptime          string                      `json:"uptime"`
	ReadOnly        bool                        `json:"read_only"`
	Redmine         *RedmineHealthStatus        `json:"redmine,omitempty"`
	InFlight        int64                       `json:"in_flight_requests"`
	Instrumentation *InstrumentationHealthCheck `json:"instrumentation,omitempty"`
}

// RedmineHealthStatus describes the configured Redmine upstream.
// The host is sanitized and no request is made to Redmine.
type RedmineHealthStatus struct {
	Host         string `json:"host"`
	CatalogPaths int    `json:"catalog_paths"`
}

// InstrumentationHealthCheck provides health information about instrumentation.
type InstrumentationHealthCheck struct {
	Enabled         bool   `json:"enabled"`
	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness only says the process answers; Redmine is not consulted.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: h.version(),
		})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.readinessChecks()
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready", Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
	})
}

// readinessChecks evaluates every readiness condition. The instrumentation
// entry is informational and never fails readiness.
func (h *HealthChecker) readinessChecks() (map[string]string, bool) {
	checks := map[string]string{"ready": "ok", "shutdown": "ok", "redmine": "ok"}
	ok := true

	if !h.ready.Load() {
		checks["ready"] = "not ready"
		ok = false
	}

	sc := h.serverContext
	if sc == nil {
		return checks, ok
	}
	if sc.IsShutdown() {
		checks["shutdown"] = "shutting down"
		ok = false
	}
	if sc.RedmineClient() == nil {
		checks["redmine"] = "not configured"
		ok = false
	}
	if provider := sc.InstrumentationProvider(); provider != nil {
		if provider.Enabled() {
			checks["instrumentation"] = "ok"
		} else {
			checks["instrumentation"] = "disabled"
		}
	}
	return checks, ok
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed endpoint.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := DetailedHealthResponse{
			Status:  "ok",
			Version: h.version(),
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		}

		if sc := h.serverContext; sc != nil {
			if cfg := sc.Config(); cfg != nil {
				response.ReadOnly = cfg.ReadOnly
			}
			response.Redmine = h.getRedmineStatus()
			response.InFlight = sc.InFlightRequests()
			response.Instrumentation = h.getInstrumentationStatus()
		}

		code := http.StatusOK
		switch {
		case !h.ready.Load():
			response.Status = "not ready"
			code = http.StatusServiceUnavailable
		case h.serverContext != nil && h.serverContext.IsShutdown():
			response.Status = "shutting down"
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, response)
	})
}

func (h *HealthChecker) version() string {
	if h.serverContext == nil || h.serverContext.Config() == nil {
		return ""
	}
	return h.serverContext.Config().Version
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *HealthChecker) getRedmineStatus() *RedmineHealthStatus {
	status := &RedmineHealthStatus{
		CatalogPaths: h.serverContext.PathCatalog().Len(),
	}
	if client := h.serverContext.RedmineClient(); client != nil {
		status.Host = logging.SanitizeHost(client.BaseURL())
	}
	return status
}

func (h *HealthChecker) getInstrumentationStatus() *InstrumentationHealthCheck {
	provider := h.serverContext.InstrumentationProvider()
	if provider == nil {
		return &InstrumentationHealthCheck{Enabled: false}
	}

	status := &InstrumentationHealthCheck{Enabled: provider.Enabled()}
	if status.Enabled {
		cfg := provider.Config()
		status.MetricsExporter = cfg.MetricsExporter
		status.TracingExporter = cfg.TracingExporter
	}
	return status
}
