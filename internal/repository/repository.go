// Package repository keeps the carpool rosters of open summary pages.
// Rosters live in process memory only and are dropped once idle.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gooze-fr/event-planner/internal/model"
	"github.com/gooze-fr/event-planner/internal/roster"
)

// ErrNotFound is returned when a roster does not exist or was evicted.
var ErrNotFound = errors.New("roster not found")

type entry struct {
	roster  *roster.Roster
	touched time.Time
}

// RosterRepository holds rosters keyed by an opaque id.
type RosterRepository struct {
	mu      sync.Mutex
	rosters map[string]*entry
	now     func() time.Time
}

// NewRosterRepository constructs an empty RosterRepository.
func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		rosters: make(map[string]*entry),
		now:     time.Now,
	}
}

// Create stores a new empty roster and returns its id.
func (r *RosterRepository) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rosters[id] = &entry{roster: roster.New(), touched: r.now()}
	return id, nil
}

// Cars returns a snapshot of the roster's cars.
func (r *RosterRepository) Cars(ctx context.Context, id string) ([]model.Car, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rosters[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.touched = r.now()
	return e.roster.Cars(), nil
}

// Update runs fn against the roster while holding the repository lock, so
// each roster operation completes before the next one starts. Errors from
// fn are returned unchanged.
func (r *RosterRepository) Update(ctx context.Context, id string, fn func(*roster.Roster) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rosters[id]
	if !ok {
		return ErrNotFound
	}
	e.touched = r.now()
	return fn(e.roster)
}

// Delete drops a roster.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rosters[id]; !ok {
		return fmt.Errorf("delete roster %s: %w", id, ErrNotFound)
	}
	delete(r.rosters, id)
	return nil
}

// Sweep evicts rosters untouched for longer than maxIdle and returns how
// many were removed.
func (r *RosterRepository) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, e := range r.rosters {
		if e.touched.Before(cutoff) {
			delete(r.rosters, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live rosters.
func (r *RosterRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rosters)
}
