package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"unionwatch/internal/logging"
	"unionwatch/internal/model"
	"unionwatch/internal/store"
)

// ModelHandler serves the current model snapshot as JSON.
type ModelHandler struct {
	Store     *store.Store[model.Tree]
	AuthToken string
}

func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Store == nil {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.Store.Read())
}

// LogsHandler serves the most recent log entries.
type LogsHandler struct {
	Logger    *logging.Logger
	AuthToken string
}

func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	buffer := h.Logger.Buffer()
	if buffer == nil {
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries := buffer.Last(limit)
	if entries == nil {
		entries = []logging.LogEntry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(value); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}
