package sweeper_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gooze-fr/event-planner/internal/sweeper"
)

type fakeEvicter struct {
	calls   atomic.Int32
	maxIdle atomic.Int64
}

func (f *fakeEvicter) Sweep(maxIdle time.Duration) int {
	f.calls.Add(1)
	f.maxIdle.Store(int64(maxIdle))
	return 2
}

func TestRunOnce(t *testing.T) {
	target := &fakeEvicter{}
	s, err := sweeper.New(target, "@every 1h", 30*time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s.RunOnce()
	if target.calls.Load() != 1 {
		t.Errorf("expected 1 sweep, got %d", target.calls.Load())
	}
	if time.Duration(target.maxIdle.Load()) != 30*time.Minute {
		t.Errorf("unexpected max idle %s", time.Duration(target.maxIdle.Load()))
	}
}

func TestInvalidSchedule(t *testing.T) {
	if _, err := sweeper.New(&fakeEvicter{}, "every now and then", time.Minute, zerolog.Nop()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestScheduledSweep(t *testing.T) {
	target := &fakeEvicter{}
	s, err := sweeper.New(target, "@every 1s", time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for target.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
