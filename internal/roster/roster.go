// Package roster implements the carpool signup list shown on an event
// summary: cars offered by drivers and the carpoolers riding in them.
package roster

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/gooze-fr/event-planner/internal/model"
)

// ErrNotFound is returned when a car or carpooler does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateDriver is returned when a driver already offers a car.
var ErrDuplicateDriver = errors.New("driver already has a car")

// ErrInvalidSeats is returned when a car is offered with no seats.
var ErrInvalidSeats = errors.New("seats must be a positive integer")

// ErrInvalidName is returned for a blank driver or carpooler name.
var ErrInvalidName = errors.New("name is required")

// ErrNoAvailableSeats is returned when a full car is joined.
var ErrNoAvailableSeats = errors.New("no available seats")

// ErrDuplicateCarpooler is returned when the same name joins a car twice.
var ErrDuplicateCarpooler = errors.New("carpooler already joined this car")

// Roster is an ordered collection of cars. Cars keep creation order and
// carpoolers keep join order; removals never reorder survivors.
//
// A Roster is not safe for concurrent use.
type Roster struct {
	cars []*model.Car
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{}
}

// AvailableSeats returns the free seats of a car snapshot.
func AvailableSeats(car model.Car) int {
	return car.Seats - len(car.Carpoolers)
}

// Len returns the number of cars.
func (r *Roster) Len() int {
	return len(r.cars)
}

// Cars returns a copy of the cars in creation order.
func (r *Roster) Cars() []model.Car {
	out := make([]model.Car, 0, len(r.cars))
	for _, c := range r.cars {
		out = append(out, copyCar(c))
	}
	return out
}

// Car returns a copy of a single car.
func (r *Roster) Car(id model.CarID) (model.Car, error) {
	i := r.indexOf(id)
	if i < 0 {
		return model.Car{}, ErrNotFound
	}
	return copyCar(r.cars[i]), nil
}

// AddCar offers a new car with the given number of seats. Driver names are
// compared exactly, so "Sam" and "sam" are different drivers.
func (r *Roster) AddCar(driver string, seats int) (model.CarID, error) {
	if strings.TrimSpace(driver) == "" {
		return "", ErrInvalidName
	}
	if seats <= 0 {
		return "", ErrInvalidSeats
	}
	for _, c := range r.cars {
		if c.Driver == driver {
			return "", ErrDuplicateDriver
		}
	}

	car := &model.Car{
		ID:         model.CarID(uuid.New().String()),
		Driver:     driver,
		Seats:      seats,
		Carpoolers: []model.Carpooler{},
	}
	r.cars = append(r.cars, car)
	return car.ID, nil
}

// RemoveCar deletes a car together with its carpoolers.
func (r *Roster) RemoveCar(id model.CarID) error {
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.cars = slices.Delete(r.cars, i, i+1)
	return nil
}

// AddCarpooler appends name to the car's carpoolers.
func (r *Roster) AddCarpooler(carID model.CarID, name string) (model.CarpoolerID, error) {
	i := r.indexOf(carID)
	if i < 0 {
		return "", ErrNotFound
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidName
	}
	car := r.cars[i]
	if AvailableSeats(*car) <= 0 {
		return "", ErrNoAvailableSeats
	}
	for _, p := range car.Carpoolers {
		if p.Name == name {
			return "", ErrDuplicateCarpooler
		}
	}

	p := model.Carpooler{
		ID:   model.CarpoolerID(uuid.New().String()),
		Name: name,
	}
	car.Carpoolers = append(car.Carpoolers, p)
	return p.ID, nil
}

// RemoveCarpooler removes one carpooler from a car, freeing a seat.
func (r *Roster) RemoveCarpooler(carID model.CarID, id model.CarpoolerID) error {
	i := r.indexOf(carID)
	if i < 0 {
		return ErrNotFound
	}
	car := r.cars[i]
	j := slices.IndexFunc(car.Carpoolers, func(p model.Carpooler) bool { return p.ID == id })
	if j < 0 {
		return ErrNotFound
	}
	car.Carpoolers = slices.Delete(car.Carpoolers, j, j+1)
	return nil
}

// AvailableSeats returns the free seats of the car with the given id.
func (r *Roster) AvailableSeats(id model.CarID) (int, error) {
	i := r.indexOf(id)
	if i < 0 {
		return 0, ErrNotFound
	}
	return AvailableSeats(*r.cars[i]), nil
}

func (r *Roster) indexOf(id model.CarID) int {
	return slices.IndexFunc(r.cars, func(c *model.Car) bool { return c.ID == id })
}

func copyCar(c *model.Car) model.Car {
	out := *c
	out.Carpoolers = slices.Clone(c.Carpoolers)
	if out.Carpoolers == nil {
		out.Carpoolers = []model.Carpooler{}
	}
	return out
}
