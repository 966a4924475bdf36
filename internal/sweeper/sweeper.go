// Package sweeper periodically evicts idle entries such as rosters whose
// summary page has gone quiet.
package sweeper

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Evicter removes entries idle for longer than maxIdle.
type Evicter interface {
	Sweep(maxIdle time.Duration) int
}

// Sweeper runs Evicter.Sweep on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	target  Evicter
	maxIdle time.Duration
	log     zerolog.Logger
}

// New schedules sweeps of target. schedule accepts standard cron
// expressions and descriptors such as "@every 5m".
func New(target Evicter, schedule string, maxIdle time.Duration, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		target:  target,
		maxIdle: maxIdle,
		log:     log.With().Str("component", "sweeper").Logger(),
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	n := s.target.Sweep(s.maxIdle)
	if n > 0 {
		s.log.Info().Int("evicted", n).Dur("max_idle", s.maxIdle).Msg("idle entries evicted")
	}
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
