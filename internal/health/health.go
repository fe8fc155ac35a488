// Package health serves the liveness and readiness probes of the metrics
// listener.
//
//   - /healthz — liveness; a process able to answer HTTP is alive.
//   - /readyz  — readiness; 200 only while every registered [Check] passes,
//     503 otherwise.
//
// Bodies are JSON: {"status": "ok"|"fail", "checks": {name: detail}}.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 2 * time.Second

// Check probes one dependency the annotation pipeline needs, e.g. the
// phonetic dictionary or the store. Probe returns nil while healthy and must
// respect context cancellation.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The check list is fixed at
// construction, so the handler is safe for concurrent use.
type Handler struct {
	checks []Check
}

// New creates a [Handler] evaluating the given checks, in order, on every
// /readyz request.
func New(checks ...Check) *Handler {
	cs := make([]Check, len(checks))
	copy(cs, checks)
	return &Handler{checks: cs}
}

// Healthz always answers 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz answers 200 when all checks pass and 503 as soon as one fails. Each
// check runs with a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checks))
	ready := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Probe(ctx)
		cancel()

		if err != nil {
			results[c.Name] = "fail: " + err.Error()
			ready = false
		} else {
			results[c.Name] = "ok"
		}
	}

	rep := report{Status: "ok", Checks: results}
	status := http.StatusOK
	if !ready {
		rep.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
