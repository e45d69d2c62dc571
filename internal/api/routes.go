// Package api exposes the mount's HTTP surface: health, metrics, model
// snapshots, recent logs, and the websocket change stream.
package api

import (
	"net/http"
	"strings"

	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/model"
	"unionwatch/internal/store"
	"unionwatch/internal/version"
)

// Options carries the shared dependencies of every handler.
type Options struct {
	Store          *store.Store[model.Tree]
	Logger         *logging.Logger
	Registry       *metrics.Registry
	AuthToken      string
	AllowedOrigins []string
}

func RegisterRoutes(mux *http.ServeMux, options Options) {
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = registry.WritePrometheus(w)
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, version.Get())
	})
	mux.Handle("/api/model", &ModelHandler{
		Store:     options.Store,
		AuthToken: options.AuthToken,
	})
	mux.Handle("/api/logs", &LogsHandler{
		Logger:    options.Logger,
		AuthToken: options.AuthToken,
	})
	mux.Handle("/ws/changes", &ChangesHandler{
		Store:          options.Store,
		Logger:         options.Logger,
		AuthToken:      options.AuthToken,
		AllowedOrigins: options.AllowedOrigins,
	})
}

func validateToken(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") && strings.TrimPrefix(header, "Bearer ") == token {
		return true
	}
	return r.URL.Query().Get("token") == token
}

func isOriginAllowed(r *http.Request, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}
