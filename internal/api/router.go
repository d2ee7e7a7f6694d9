package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, bus EventBus) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus}

	// System state
	r.Get("/api", h.getState)
	r.Get("/api/", h.getState)

	// Channels
	r.Get("/api/channels", h.getChannels)
	r.Get("/api/channels/{ch}", h.getChannel)
	r.Patch("/api/channels/{ch}", h.setChannel)
	r.Post("/api/channels/off", h.allOff)

	// Frequency
	r.Patch("/api/frequency", h.setFrequency)

	// Presets
	r.Get("/api/presets", h.getPresets)
	r.Get("/api/presets/{name}", h.getPreset)
	r.Put("/api/presets/{name}", h.savePreset)
	r.Delete("/api/presets/{name}", h.deletePreset)
	r.Post("/api/presets/{name}/load", h.loadPreset)

	// System
	r.Get("/api/info", h.getInfo)

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
