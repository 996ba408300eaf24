package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.handleHealth)

	// WebSocket: no timeout, connections are long lived
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Source site
		r.Get("/api/tournaments", h.handleListTournaments)
		r.Get("/api/matchup", h.handleMatchup)

		// Sessions
		r.Post("/api/sessions", h.handleOpenSession)
		r.Get("/api/sessions/{id}", h.handleGetSession)
		r.Delete("/api/sessions/{id}", h.handleCloseSession)
		r.Get("/api/sessions/{id}/projection", h.handleProjection)
		r.Post("/api/sessions/{id}/predictions", h.handlePredict)
		r.Post("/api/sessions/{id}/refresh", h.handleRefresh)
		r.Post("/api/sessions/{id}/save", h.handleSave)
		r.Get("/api/sessions/{id}/share", h.handleShareURL)
		r.Get("/api/sessions/{id}/qr", h.handleShareQR)

		// Stored brackets
		r.Get("/api/brackets", h.handleListBrackets)
		r.Delete("/api/brackets/{key}", h.handleDeleteBracket)

		// Settings
		r.Get("/api/settings", h.handleGetSettings)
		r.Put("/api/settings", h.handleUpdateSettings)
	})

	return r
}
