/*
cordix query server

Read-only HTTP access to a cordix B-tree index file: health check,
single-key search, and a full ascending listing.

Version: 1.0.0
BasePath: /

swagger:meta
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/adrennan/cordix/pkg/telemetry"
)

// NewRouter builds the chi router for indexFile. Every request opens
// the index file through storage.Open, performs one operation that
// writes nothing, and closes it; the router itself holds no file handle.
// storage.Open opens the file read-write, so the handle each request
// holds is a read-write one.
func NewRouter(indexFile string, m *telemetry.Metrics) *chi.Mux {
	server := NewServer(indexFile, m)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", instrument(m, "/healthz", server.handleHealthz))
	r.Get("/keys/{key}", instrument(m, "/keys/{key}", server.handleGetKey))
	r.Get("/keys", instrument(m, "/keys", server.handleListKeys))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/doc.json", handleOpenAPIDoc)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return r
}

// StartServer blocks serving NewRouter(indexFile, m) on addr.
func StartServer(addr, indexFile string, m *telemetry.Metrics) error {
	return http.ListenAndServe(addr, NewRouter(indexFile, m))
}
