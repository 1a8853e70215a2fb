package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solarscout/internal/database"
	"solarscout/internal/logging"
)

const defaultRunsLimit = 20
const maxRunsLimit = 100

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	DB *database.DB
}

// NewHandler creates a new Handler instance.
func NewHandler(db *database.DB) *Handler {
	return &Handler{DB: db}
}

// RegisterRoutes sets up the routing for the status server.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/lastrun", h.handleLastRun)
	mux.HandleFunc("/api/v1/runs", h.handleRuns)
}

// handleHealth reports liveness and that the run journal is reachable.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(); err != nil {
		logging.Error("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLastRun returns the most recent run, 404 when none exist yet.
func (h *Handler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	rec, err := h.DB.LastRun()
	if err != nil {
		logging.Error("Failed to load last run: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no runs recorded yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRuns returns recent runs, newest first. The limit query
// parameter caps the page size.
func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.DB.RecentRuns(limit)
	if err != nil {
		logging.Error("Failed to load recent runs: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	total, err := h.DB.TotalRuns()
	if err != nil {
		logging.Error("Failed to count runs: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"runs":  runs,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode response: %v", err)
	}
}
