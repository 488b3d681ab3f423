// Package api translates HTTP requests into engine calls and engine results
// into status codes: validation 400, auth 401, connection 503, execution
// 500. The route shapes follow the AWARE client protocol.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polalpha/aware-gateway/internal/auth"
	"github.com/polalpha/aware-gateway/internal/ingest"
	"github.com/polalpha/aware-gateway/internal/retrieve"
	"github.com/polalpha/aware-gateway/internal/stats"
	"github.com/polalpha/aware-gateway/internal/store"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Store    *store.Provider
	Ingest   *ingest.Engine
	Retrieve *retrieve.Engine
	Auth     *auth.Service
	Stats    *stats.Stats

	// RequestTimeout bounds every request, including large paginated
	// scans. Zero means the 5 minute default.
	RequestTimeout time.Duration
}

// NewRouter wires all dependencies and returns the chi router.
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout == 0 {
		d.RequestTimeout = 5 * time.Minute
	}

	h := &handlers{
		store:    d.Store,
		ingest:   d.Ingest,
		retrieve: d.Retrieve,
		auth:     d.Auth,
		stats:    d.Stats,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(zerologMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	// AWARE clients post records with the study password in the URL.
	r.Post("/webservice/index/{study_id}/{password}/{table}", h.webserviceTable)

	r.Post("/login", h.login)
	r.Get("/data", h.data)
	r.Get("/tables-for-device", h.tablesForDevice)
	r.Get("/health", h.health)
	r.Get("/stats", h.serviceStats)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
