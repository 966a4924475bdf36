package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	Log         zerolog.Logger
	Limiter     *RateLimiter
	CORSOrigins []string
}

// NewRouter mounts the HTML pages, the JSON API and the static assets.
func NewRouter(h *EventHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(opts.Log))
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Limit)
	}

	r.Get("/health", HealthCheck)
	r.Handle("/static/*", StaticFiles())

	// Browser pages
	r.Get("/", h.FormPage)
	r.Post("/events", h.SubmitForm)
	r.Get("/event-summary", h.SummaryPage)
	r.Get("/event-summary.ics", h.Calendar)
	r.Route("/event-summary/rosters/{rosterID}/cars", func(r chi.Router) {
		r.Post("/", h.PostCar)
		r.Post("/{carID}/delete", h.PostRemoveCar)
		r.Post("/{carID}/carpoolers", h.PostCarpooler)
		r.Post("/{carID}/carpoolers/{carpoolerID}/delete", h.PostRemoveCarpooler)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(opts.CORSOrigins))
		r.Post("/drafts", h.CreateDraft)
		r.Get("/geocode", h.Geocode)
		r.Post("/rosters", h.CreateRoster)
		r.Route("/rosters/{rosterID}", func(r chi.Router) {
			r.Get("/", h.GetRoster)
			r.Post("/cars", h.AddCar)
			r.Delete("/cars/{carID}", h.RemoveCar)
			r.Post("/cars/{carID}/carpoolers", h.AddCarpooler)
			r.Delete("/cars/{carID}/carpoolers/{carpoolerID}", h.RemoveCarpooler)
		})
	})

	return r
}
