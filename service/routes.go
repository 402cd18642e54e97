package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/engine"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/pkg/worker"
)

// RegisterHTTPHandlers mounts every endpoint under the given prefix.
// Start calls this on the service's own mux; tests mount on their own.
func (s *Service) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Ensure prefix ends with /
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"api/broker", s.handleBroker)
	mux.HandleFunc(prefix+"api/mappings", s.handleMappings)
	mux.HandleFunc(prefix+"api/schemas", s.handleSchemas)
	mux.HandleFunc(prefix+"api/schemas/", s.handleSchemaByName)
	mux.HandleFunc(prefix+"api/status", s.handleStatus)

	mux.HandleFunc(prefix+"healthz", s.handleHealth)
	mux.HandleFunc(prefix+"readyz", s.handleReadiness)
	mux.Handle(prefix+"metrics", s.registry.Handler())

	if s.hub != nil {
		mux.Handle(prefix+"ws/config-updates", s.hub)
	}

	s.logger.Info("HTTP handlers registered", "prefix", prefix)
}

// handleStatus reports the engine's connection and snapshot state plus
// recorder queue statistics.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := struct {
		Uptime    string            `json:"uptime"`
		StartedAt time.Time         `json:"started_at"`
		Engine    engine.Status     `json:"engine"`
		Recorder  *worker.PoolStats `json:"recorder,omitempty"`
		Clients   *int              `json:"notify_clients,omitempty"`
	}{
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt: s.startedAt,
		Engine:    s.engine.Status(),
	}

	if s.sink != nil {
		stats := s.sink.Stats()
		resp.Recorder = &stats
	}
	if s.hub != nil {
		n := s.hub.ClientCount()
		resp.Clients = &n
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleHealth serves the monitor roll-up. Unhealthy maps to 503;
// degraded still answers 200 with the detail in the body.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	systemHealth := s.monitor.AggregateHealth("gateway")

	status := http.StatusOK
	if systemHealth.IsUnhealthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, systemHealth)
}

// handleReadiness is a simple liveness probe
func (s *Service) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// writeJSON writes v as a JSON response with the given status code.
func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeErrors writes a client-fault response in the API's error shape.
func (s *Service) writeErrors(w http.ResponseWriter, status int, errs ...string) {
	s.writeJSON(w, status, struct {
		Errors []string `json:"errors"`
	}{Errors: errs})
}

// writeSuccess reports a completed mutation. The snapshot id names the
// configuration generation the mutation produced.
func (s *Service) writeSuccess(w http.ResponseWriter, status int, message, snapshotID string) {
	s.writeJSON(w, status, struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		SnapshotID string `json:"snapshot_id,omitempty"`
	}{
		Status:     "success",
		Message:    message,
		SnapshotID: snapshotID,
	})
}
