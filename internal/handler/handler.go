// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gooze-fr/event-planner/internal/geocode"
	"github.com/gooze-fr/event-planner/internal/model"
	"github.com/gooze-fr/event-planner/internal/repository"
	"github.com/gooze-fr/event-planner/internal/roster"
	"github.com/gooze-fr/event-planner/internal/service"
)

// EventHandler holds all HTTP handlers for the event planner.
type EventHandler struct {
	svc          *service.EventService
	pages        *pages
	defaultSeats int
	log          zerolog.Logger
}

// NewEventHandler constructs an EventHandler. defaultSeats pre-fills the
// seat count on the add-car form.
func NewEventHandler(svc *service.EventService, defaultSeats int, log zerolog.Logger) *EventHandler {
	if defaultSeats <= 0 {
		defaultSeats = 4
	}
	return &EventHandler{
		svc:          svc,
		pages:        mustParsePages(),
		defaultSeats: defaultSeats,
		log:          log.With().Str("component", "http").Logger(),
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, roster.ErrDuplicateDriver),
		errors.Is(err, roster.ErrDuplicateCarpooler),
		errors.Is(err, roster.ErrNoAvailableSeats):
		return http.StatusConflict
	case errors.Is(err, roster.ErrInvalidSeats),
		errors.Is(err, roster.ErrInvalidName),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, roster.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, geocode.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the user for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, roster.ErrDuplicateDriver):
		return "This driver already has a car. Please enter a unique driver name."
	case errors.Is(err, roster.ErrInvalidSeats):
		return "Please enter a positive number of seats."
	case errors.Is(err, roster.ErrInvalidName):
		return "Please enter a name."
	case errors.Is(err, roster.ErrNoAvailableSeats):
		return "No available seats left in this car."
	case errors.Is(err, roster.ErrDuplicateCarpooler):
		return "This carpooler has already joined."
	case errors.Is(err, repository.ErrNotFound):
		return "This carpool list no longer exists."
	case errors.Is(err, roster.ErrNotFound):
		return "That car or carpooler no longer exists."
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, geocode.ErrUnavailable):
		return "geocoding is unavailable"
	default:
		return "internal error"
	}
}

func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, messageFor(err))
}

// summaryURL builds the summary page address for an eventInfo payload.
func summaryURL(eventInfo, rosterID string) string {
	q := url.Values{}
	if eventInfo != "" {
		q.Set("eventInfo", eventInfo)
	}
	if rosterID != "" {
		q.Set("roster", rosterID)
	}
	if len(q) == 0 {
		return "/event-summary"
	}
	return "/event-summary?" + q.Encode()
}

// ─── JSON API ─────────────────────────────────────────────────────────────────

// CreateDraft handles POST /api/drafts
// Submits a creation form and returns the snapshot and its summary link.
func (h *EventHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	in := model.DraftInput{IsPublic: true}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d, payload, err := h.svc.SubmitDraft(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.DraftResponse{
		Draft:      d,
		EventInfo:  payload,
		SummaryURL: summaryURL(payload, ""),
	})
}

// Geocode handles GET /api/geocode?address=
func (h *EventHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	pos, err := h.svc.Geocode(r.Context(), address)
	if err != nil {
		h.log.Warn().Err(err).Msg("geocode request failed")
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// CreateRoster handles POST /api/rosters
func (h *EventHandler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.NewRoster(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.RosterResponse{ID: id, Cars: []model.CarView{}})
}

// GetRoster handles GET /api/rosters/{rosterID}
func (h *EventHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Roster(r.Context(), chi.URLParam(r, "rosterID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddCar handles POST /api/rosters/{rosterID}/cars
func (h *EventHandler) AddCar(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	car, err := h.svc.AddCar(r.Context(), chi.URLParam(r, "rosterID"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.CarView{Car: car, AvailableSeats: roster.AvailableSeats(car)})
}

// RemoveCar handles DELETE /api/rosters/{rosterID}/cars/{carID}
func (h *EventHandler) RemoveCar(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveCar(r.Context(), chi.URLParam(r, "rosterID"), model.CarID(chi.URLParam(r, "carID")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCarpooler handles POST /api/rosters/{rosterID}/cars/{carID}/carpoolers
func (h *EventHandler) AddCarpooler(w http.ResponseWriter, r *http.Request) {
	var req model.JoinCarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.AddCarpooler(r.Context(), chi.URLParam(r, "rosterID"), model.CarID(chi.URLParam(r, "carID")), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// RemoveCarpooler handles DELETE /api/rosters/{rosterID}/cars/{carID}/carpoolers/{carpoolerID}
func (h *EventHandler) RemoveCarpooler(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveCarpooler(r.Context(),
		chi.URLParam(r, "rosterID"),
		model.CarID(chi.URLParam(r, "carID")),
		model.CarpoolerID(chi.URLParam(r, "carpoolerID")),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
