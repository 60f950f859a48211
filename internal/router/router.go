// Package router sets up all HTTP routes and middleware chains for the
// book catalog. Reads and writes share one stack; writes additionally pass
// through the per-client write limiter when one is configured.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookcatalog/internal/handlers"
	"bookcatalog/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable write limiting.
func New(categories *handlers.Categories, books *handlers.Books, limiter *middleware.WriteLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Operational endpoints.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		// Category tree
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Post("/", categories.Create)
			r.Get("/log", categories.Log)
			r.Get("/{id}", categories.Get)
			r.Patch("/{id}", categories.Rename)
			r.Delete("/{id}", categories.Delete)
			r.Post("/{id}/move", categories.Move)
			r.Post("/{id}/reorder", categories.Reorder)
			r.Get("/{id}/range", categories.Range)
			r.Get("/{id}/books", categories.Books)
		})

		// Books and their category links
		r.Route("/books", func(r chi.Router) {
			r.Post("/", books.Create)
			r.Get("/{id}", books.Get)
			r.Put("/{id}", books.Update)
			r.Put("/{id}/categories/{categoryID}", books.Link)
			r.Delete("/{id}/categories/{categoryID}", books.Unlink)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
