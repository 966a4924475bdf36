// Package model defines the core domain types for the event planner.
package model

// Category is the kind of event picked on the creation form.
type Category string

const (
	CategoryParty      Category = "party"
	CategoryRestaurant Category = "restaurant"
	CategoryHoliday    Category = "holiday"
	CategoryFestival   Category = "festival"
	CategoryOther      Category = "other"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryParty,
	CategoryRestaurant,
	CategoryHoliday,
	CategoryFestival,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// EventDraft is the snapshot produced when the creation form is submitted.
// Dates and times are already formatted for display. The JSON shape is the
// eventInfo query payload handed to the summary page.
type EventDraft struct {
	EventName        string `json:"eventName"`
	Organizers       string `json:"organizers"`
	EventDescription string `json:"eventDescription"`
	EventCategory    string `json:"eventCategory"`
	EventStartDate   string `json:"eventStartDate"`
	EventEndDate     string `json:"eventEndDate"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	IsPublic         bool   `json:"isPublic"`
	Address          string `json:"address"`
	EventURL         string `json:"eventUrl"`
}

// Privacy returns the label shown on the summary page.
func (d EventDraft) Privacy() string {
	if d.IsPublic {
		return "Public"
	}
	return "Private"
}

// CarID identifies a car within a roster. It stays stable across deletions.
type CarID string

// CarpoolerID identifies a carpooler within a car.
type CarpoolerID string

// Carpooler is a passenger who joined a car.
type Carpooler struct {
	ID   CarpoolerID `json:"id"`
	Name string      `json:"name"`
}

// Car is a driver offering a fixed number of seats.
// Carpoolers are kept in join order.
type Car struct {
	ID         CarID       `json:"id"`
	Driver     string      `json:"driver"`
	Seats      int         `json:"seats"`
	Carpoolers []Carpooler `json:"carpoolers"`
}

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// DraftInput is the raw creation form as posted by the browser or the
// JSON API. Dates are YYYY-MM-DD and times HH:MM.
type DraftInput struct {
	EventName        string `json:"eventName" validate:"max=200"`
	Organizers       string `json:"organizers" validate:"max=200"`
	EventDescription string `json:"eventDescription" validate:"max=5000"`
	EventCategory    string `json:"eventCategory" validate:"omitempty,oneof=party restaurant holiday festival other"`
	EventStartDate   string `json:"eventStartDate"`
	EventEndDate     string `json:"eventEndDate"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	IsPublic         bool   `json:"isPublic"`
	Address          string `json:"address" validate:"max=500"`
}

// DraftResponse is returned by the JSON draft endpoint.
type DraftResponse struct {
	Draft      EventDraft `json:"draft"`
	EventInfo  string     `json:"eventInfo"`
	SummaryURL string     `json:"summaryUrl"`
}

// CreateCarRequest is the payload for offering a new car.
type CreateCarRequest struct {
	Driver string `json:"driver" validate:"max=100"`
	Seats  int    `json:"seats"`
}

// JoinCarRequest is the payload for joining a car as a carpooler.
type JoinCarRequest struct {
	Name string `json:"name" validate:"max=100"`
}

// CarView is a car as rendered to clients, with its derived seat count.
type CarView struct {
	Car
	AvailableSeats int `json:"availableSeats"`
}

// RosterResponse is the JSON shape of a roster.
type RosterResponse struct {
	ID   string    `json:"id"`
	Cars []CarView `json:"cars"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
