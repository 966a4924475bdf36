package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gooze-fr/event-planner/internal/draft"
	"github.com/gooze-fr/event-planner/internal/model"
	"github.com/gooze-fr/event-planner/internal/repository"
	"github.com/gooze-fr/event-planner/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type pages struct {
	form    *template.Template
	summary *template.Template
}

func mustParsePages() *pages {
	base := template.Must(template.New("layout.html").ParseFS(templateFS, "templates/layout.html"))
	return &pages{
		form:    template.Must(template.Must(base.Clone()).ParseFS(templateFS, "templates/form.html")),
		summary: template.Must(template.Must(base.Clone()).ParseFS(templateFS, "templates/summary.html")),
	}
}

// StaticFiles serves the embedded stylesheet.
func StaticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *EventHandler) render(w http.ResponseWriter, t *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.log.Error().Err(err).Msg("render template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ─── Creation page ────────────────────────────────────────────────────────────

type formPage struct {
	Title      string
	Input      model.DraftInput
	EventURL   string
	Categories []model.Category
	Error      string
}

// FormPage handles GET /
func (h *EventHandler) FormPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.pages.form, http.StatusOK, formPage{
		Title:      "Create Your Event",
		Input:      model.DraftInput{IsPublic: true},
		EventURL:   draft.DeriveURL(h.svc.Domain(), ""),
		Categories: model.Categories,
	})
}

// SubmitForm handles POST /events
// Submits the creation form and redirects to the summary page.
func (h *EventHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := model.DraftInput{
		EventName:        r.PostForm.Get("eventName"),
		Organizers:       r.PostForm.Get("organizers"),
		EventDescription: r.PostForm.Get("eventDescription"),
		EventCategory:    r.PostForm.Get("eventCategory"),
		EventStartDate:   r.PostForm.Get("eventStartDate"),
		EventEndDate:     r.PostForm.Get("eventEndDate"),
		StartTime:        r.PostForm.Get("startTime"),
		EndTime:          r.PostForm.Get("endTime"),
		IsPublic:         checked(r.PostForm.Get("isPublic")),
		Address:          r.PostForm.Get("address"),
	}

	_, payload, err := h.svc.SubmitDraft(r.Context(), in)
	if err != nil {
		h.render(w, h.pages.form, statusFor(err), formPage{
			Title:      "Create Your Event",
			Input:      in,
			EventURL:   draft.DeriveURL(h.svc.Domain(), in.EventName),
			Categories: model.Categories,
			Error:      messageFor(err),
		})
		return
	}
	http.Redirect(w, r, summaryURL(payload, ""), http.StatusSeeOther)
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "", "off", "false", "0":
		return false
	}
	return true
}

// ─── Summary page ─────────────────────────────────────────────────────────────

type summaryPage struct {
	Title        string
	Summary      service.Summary
	EventInfo    string
	RosterID     string
	Cars         []model.CarView
	DefaultSeats int
	Error        string
	CalendarURL  string
}

// SummaryPage handles GET /event-summary
// Renders the submitted event and its carpool roster. A roster is opened
// when the query names none or an expired one.
func (h *EventHandler) SummaryPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.renderSummary(w, r, http.StatusOK, q.Get("eventInfo"), q.Get("roster"), "")
}

func (h *EventHandler) renderSummary(w http.ResponseWriter, r *http.Request, status int, eventInfo, rosterID, errMsg string) {
	ctx := r.Context()

	ros, err := h.svc.Roster(ctx, rosterID)
	if errors.Is(err, repository.ErrNotFound) {
		// no roster yet, or it was swept
		var id string
		if id, err = h.svc.NewRoster(ctx); err == nil {
			ros = model.RosterResponse{ID: id, Cars: []model.CarView{}}
		}
	}
	if err != nil {
		h.log.Error().Err(err).Str("roster_id", rosterID).Msg("load roster")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	calendarURL := ""
	if eventInfo != "" {
		calendarURL = strings.Replace(summaryURL(eventInfo, ""), "/event-summary", "/event-summary.ics", 1)
	}

	h.render(w, h.pages.summary, status, summaryPage{
		Title:        "Event Summary",
		Summary:      h.svc.Summary(ctx, eventInfo),
		EventInfo:    eventInfo,
		RosterID:     ros.ID,
		Cars:         ros.Cars,
		DefaultSeats: h.defaultSeats,
		Error:        errMsg,
		CalendarURL:  calendarURL,
	})
}

// afterRosterChange redirects back to the summary on success and
// re-renders it with the error otherwise.
func (h *EventHandler) afterRosterChange(w http.ResponseWriter, r *http.Request, err error) {
	eventInfo := r.PostForm.Get("eventInfo")
	rosterID := chi.URLParam(r, "rosterID")
	if err == nil {
		http.Redirect(w, r, summaryURL(eventInfo, rosterID), http.StatusSeeOther)
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("roster change failed")
	}
	msg := messageFor(err)
	if errors.Is(err, repository.ErrNotFound) {
		msg += " A new one was started."
	}
	h.renderSummary(w, r, status, eventInfo, rosterID, msg)
}

// PostCar handles POST /event-summary/rosters/{rosterID}/cars
func (h *EventHandler) PostCar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	// a seat count that does not parse or overflows is rejected as zero seats
	seats, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("seats")))
	if err != nil {
		seats = 0
	}
	_, err = h.svc.AddCar(r.Context(), chi.URLParam(r, "rosterID"), model.CreateCarRequest{
		Driver: r.PostForm.Get("driver"),
		Seats:  seats,
	})
	h.afterRosterChange(w, r, err)
}

// PostRemoveCar handles POST /event-summary/rosters/{rosterID}/cars/{carID}/delete
func (h *EventHandler) PostRemoveCar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	err := h.svc.RemoveCar(r.Context(), chi.URLParam(r, "rosterID"), model.CarID(chi.URLParam(r, "carID")))
	h.afterRosterChange(w, r, err)
}

// PostCarpooler handles POST /event-summary/rosters/{rosterID}/cars/{carID}/carpoolers
func (h *EventHandler) PostCarpooler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	_, err := h.svc.AddCarpooler(r.Context(), chi.URLParam(r, "rosterID"), model.CarID(chi.URLParam(r, "carID")), model.JoinCarRequest{
		Name: r.PostForm.Get("name"),
	})
	h.afterRosterChange(w, r, err)
}

// PostRemoveCarpooler handles POST /event-summary/rosters/{rosterID}/cars/{carID}/carpoolers/{carpoolerID}/delete
func (h *EventHandler) PostRemoveCarpooler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	err := h.svc.RemoveCarpooler(r.Context(),
		chi.URLParam(r, "rosterID"),
		model.CarID(chi.URLParam(r, "carID")),
		model.CarpoolerID(chi.URLParam(r, "carpoolerID")),
	)
	h.afterRosterChange(w, r, err)
}

// Calendar handles GET /event-summary.ics
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ExportCalendar(r.Context(), r.URL.Query().Get("eventInfo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	_, _ = w.Write([]byte(out))
}
