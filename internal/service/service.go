// Package service implements business logic, validation, and orchestration
// between HTTP handlers, the draft form, geocoding and the roster repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gooze-fr/event-planner/internal/calendar"
	"github.com/gooze-fr/event-planner/internal/draft"
	"github.com/gooze-fr/event-planner/internal/geocode"
	"github.com/gooze-fr/event-planner/internal/model"
	"github.com/gooze-fr/event-planner/internal/repository"
	"github.com/gooze-fr/event-planner/internal/roster"
)

// ErrInvalidInput is returned when a request fails validation.
var ErrInvalidInput = errors.New("invalid input")

// Options configures an EventService.
type Options struct {
	Domain        string
	DefaultCenter model.LatLng
	Zoom          int
	MapsBaseURL   string
	MapsAPIKey    string
	Location      *time.Location
}

// EventService orchestrates the creation form, the summary page and the
// carpool rosters.
type EventService struct {
	rosters  *repository.RosterRepository
	geo      *geocode.Cache
	validate *validator.Validate
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	rosters *repository.RosterRepository,
	geo *geocode.Cache,
	opts Options,
	log zerolog.Logger,
) *EventService {
	if opts.Domain == "" {
		opts.Domain = draft.DefaultDomain
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &EventService{
		rosters:  rosters,
		geo:      geo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
		log:      log.With().Str("component", "service").Logger(),
		now:      time.Now,
	}
}

// Domain returns the prefix of derived event links.
func (s *EventService) Domain() string {
	return s.opts.Domain
}

// SubmitDraft applies the posted form to a fresh draft form and returns the
// submitted snapshot together with its eventInfo payload.
func (s *EventService) SubmitDraft(ctx context.Context, in model.DraftInput) (model.EventDraft, string, error) {
	if err := s.check(ctx, in); err != nil {
		return model.EventDraft{}, "", err
	}

	f := draft.NewForm(s.opts.Domain)
	fields := []struct{ name, value string }{
		{draft.FieldEventName, in.EventName},
		{draft.FieldOrganizers, in.Organizers},
		{draft.FieldEventDescription, in.EventDescription},
		{draft.FieldEventCategory, in.EventCategory},
		{draft.FieldEventStartDate, in.EventStartDate},
		{draft.FieldEventEndDate, in.EventEndDate},
		{draft.FieldStartTime, in.StartTime},
		{draft.FieldEndTime, in.EndTime},
		{draft.FieldIsPublic, strconv.FormatBool(in.IsPublic)},
		{draft.FieldAddress, in.Address},
	}
	for _, fld := range fields {
		if err := f.SetField(fld.name, fld.value); err != nil {
			return model.EventDraft{}, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	f.SelectDateRange(f.DateRange())

	d := f.Submit()
	payload, err := draft.Encode(d)
	if err != nil {
		return model.EventDraft{}, "", fmt.Errorf("encode draft: %w", err)
	}
	s.log.Info().Str("event_url", d.EventURL).Str("category", d.EventCategory).Msg("draft submitted")
	return d, payload, nil
}

// Summary is everything the summary page shows above the roster.
type Summary struct {
	Draft     model.EventDraft
	HasDraft  bool
	Center    model.LatLng
	Zoom      int
	MapURL    string
	Geocoded  bool
	MapsReady bool
}

// Summary decodes the eventInfo payload and centres the map on its
// address. The centre is looked up once per address and shared by later
// renders; geocoding failures keep the default centre and are only logged.
func (s *EventService) Summary(ctx context.Context, payload string) Summary {
	d, ok := draft.Decode(payload)
	if !ok && payload != "" {
		s.log.Warn().Int("payload_len", len(payload)).Msg("malformed eventInfo payload, rendering defaults")
	}

	center, geocoded := s.opts.DefaultCenter, false
	if s.geo != nil {
		center, geocoded = s.geo.Locate(ctx, d.Address)
	}

	return Summary{
		Draft:     d,
		HasDraft:  ok,
		Center:    center,
		Zoom:      s.opts.Zoom,
		MapURL:    geocode.StaticMapURL(s.opts.MapsBaseURL, s.opts.MapsAPIKey, center, s.opts.Zoom),
		Geocoded:  geocoded,
		MapsReady: s.opts.MapsAPIKey != "",
	}
}

// Geocode resolves a single address.
func (s *EventService) Geocode(ctx context.Context, address string) (model.LatLng, error) {
	if s.geo == nil {
		return model.LatLng{}, geocode.ErrUnavailable
	}
	return s.geo.Lookup(ctx, address)
}

// ExportCalendar renders the eventInfo payload as an iCalendar file.
func (s *EventService) ExportCalendar(_ context.Context, payload string) (string, error) {
	d, _ := draft.Decode(payload)
	out, err := calendar.Export(d, s.opts.Location, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// NewRoster opens an empty roster for a summary page view.
func (s *EventService) NewRoster(ctx context.Context) (string, error) {
	id, err := s.rosters.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("create roster: %w", err)
	}
	s.log.Debug().Str("roster_id", id).Msg("roster created")
	return id, nil
}

// Roster returns the cars of a roster with their free seats.
func (s *EventService) Roster(ctx context.Context, id string) (model.RosterResponse, error) {
	cars, err := s.rosters.Cars(ctx, id)
	if err != nil {
		return model.RosterResponse{}, err
	}
	views := make([]model.CarView, 0, len(cars))
	for _, c := range cars {
		views = append(views, model.CarView{Car: c, AvailableSeats: roster.AvailableSeats(c)})
	}
	return model.RosterResponse{ID: id, Cars: views}, nil
}

// AddCar offers a car in a roster.
func (s *EventService) AddCar(ctx context.Context, rosterID string, req model.CreateCarRequest) (model.Car, error) {
	if err := s.check(ctx, req); err != nil {
		return model.Car{}, err
	}

	var car model.Car
	err := s.rosters.Update(ctx, rosterID, func(r *roster.Roster) error {
		id, err := r.AddCar(req.Driver, req.Seats)
		if err != nil {
			return err
		}
		car, err = r.Car(id)
		return err
	})
	if err != nil {
		return model.Car{}, err
	}
	s.log.Info().Str("roster_id", rosterID).Str("car_id", string(car.ID)).Int("seats", car.Seats).Msg("car added")
	return car, nil
}

// RemoveCar withdraws a car and its carpoolers.
func (s *EventService) RemoveCar(ctx context.Context, rosterID string, carID model.CarID) error {
	err := s.rosters.Update(ctx, rosterID, func(r *roster.Roster) error {
		return r.RemoveCar(carID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("roster_id", rosterID).Str("car_id", string(carID)).Msg("car removed")
	return nil
}

// AddCarpooler joins a car.
func (s *EventService) AddCarpooler(ctx context.Context, rosterID string, carID model.CarID, req model.JoinCarRequest) (model.Carpooler, error) {
	if err := s.check(ctx, req); err != nil {
		return model.Carpooler{}, err
	}

	var p model.Carpooler
	err := s.rosters.Update(ctx, rosterID, func(r *roster.Roster) error {
		id, err := r.AddCarpooler(carID, req.Name)
		if err != nil {
			return err
		}
		p = model.Carpooler{ID: id, Name: req.Name}
		return nil
	})
	if err != nil {
		return model.Carpooler{}, err
	}
	s.log.Info().Str("roster_id", rosterID).Str("car_id", string(carID)).Msg("carpooler joined")
	return p, nil
}

// RemoveCarpooler removes a carpooler from a car.
func (s *EventService) RemoveCarpooler(ctx context.Context, rosterID string, carID model.CarID, id model.CarpoolerID) error {
	err := s.rosters.Update(ctx, rosterID, func(r *roster.Roster) error {
		return r.RemoveCarpooler(carID, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("roster_id", rosterID).Str("car_id", string(carID)).Msg("carpooler left")
	return nil
}

// check validates struct tags and flattens failures into ErrInvalidInput.
func (s *EventService) check(ctx context.Context, v any) error {
	err := s.validate.StructCtx(ctx, v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "required":
		return fe.Field() + " is required"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
