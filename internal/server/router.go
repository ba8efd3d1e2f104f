// Package server wires the HTTP surface: health, metrics and the admin
// harvest API.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EmpoweredVote/geoharvest/internal/harvestjobs"
	"github.com/EmpoweredVote/geoharvest/internal/middleware"
)

// Options configures NewRouter.
type Options struct {
	Jobs        *harvestjobs.Manager
	Gatherer    prometheus.Gatherer
	AdminToken  string
	CORSOrigins []string
}

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

// NewRouter builds the chi router for the admin server.
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/", RootHandler)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if opts.Jobs != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(opts.AdminToken))
			r.Mount("/harvest", opts.Jobs.Routes())
		})
	}
	return r
}
