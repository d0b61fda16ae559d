// Package timer models one countdown: the athlete clock or the break clock.
//
// A Timer never drives itself. It stores the absolute end time while running and
// computes the remaining time on demand, so displays can be told when the clock ends
// instead of receiving ticks. Every mutation bumps a generation counter; callers that
// schedule expiry callbacks tag them with the generation and drop stale ones.
//
// A Timer is owned by a single field of play and is not safe for concurrent use.
package timer

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type Timer struct {
	clock      clockwork.Clock
	remaining  *time.Duration
	endsAt     time.Time
	running    bool
	generation uint64
}

// State is a read-only copy of a timer at one instant.
type State struct {
	Remaining  *time.Duration
	EndsAt     *time.Time
	Running    bool
	Indefinite bool
	Generation uint64
}

func New(clock clockwork.Clock) *Timer {
	var zero time.Duration
	return &Timer{clock: clock, remaining: &zero}
}

// Reset stops the timer and loads a new duration. A nil duration makes it indefinite.
func (t *Timer) Reset(d *time.Duration) {
	t.running = false
	t.endsAt = time.Time{}
	if d == nil {
		t.remaining = nil
	} else {
		v := max(*d, 0)
		t.remaining = &v
	}
	t.generation++
}

// Start runs the timer from its remaining time. Starting a running timer is a no-op.
func (t *Timer) Start() {
	if t.running {
		return
	}
	t.running = true
	if t.remaining != nil {
		t.endsAt = t.clock.Now().Add(*t.remaining)
	}
	t.generation++
}

// Pause freezes the remaining time. Indefinite timers ignore it.
func (t *Timer) Pause() {
	if !t.running || t.remaining == nil {
		return
	}
	t.freeze()
}

// SetTime loads a new remaining time, keeping the running state.
// Indefinite timers ignore it; use Reset to give them a duration.
func (t *Timer) SetTime(d time.Duration) {
	if t.remaining == nil {
		return
	}
	d = max(d, 0)
	t.remaining = &d
	if t.running {
		t.endsAt = t.clock.Now().Add(d)
	}
	t.generation++
}

// Stop halts the timer whatever its kind.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.freeze()
}

func (t *Timer) freeze() {
	if t.remaining != nil {
		left := max(t.endsAt.Sub(t.clock.Now()), 0)
		t.remaining = &left
	}
	t.running = false
	t.endsAt = time.Time{}
	t.generation++
}

// RemainingAt returns the time left at now, or nil for an indefinite timer.
func (t *Timer) RemainingAt(now time.Time) *time.Duration {
	if t.remaining == nil {
		return nil
	}
	if !t.running {
		v := *t.remaining
		return &v
	}
	left := max(t.endsAt.Sub(now), 0)
	return &left
}

// Remaining is RemainingAt the clock's current time.
func (t *Timer) Remaining() *time.Duration {
	return t.RemainingAt(t.clock.Now())
}

// EndsAt is set only while a timer with a duration is running.
func (t *Timer) EndsAt() *time.Time {
	if !t.running || t.remaining == nil {
		return nil
	}
	e := t.endsAt
	return &e
}

func (t *Timer) Running() bool      { return t.running }
func (t *Timer) Indefinite() bool   { return t.remaining == nil }
func (t *Timer) Generation() uint64 { return t.generation }

func (t *Timer) State() State {
	return State{
		Remaining:  t.Remaining(),
		EndsAt:     t.EndsAt(),
		Running:    t.running,
		Indefinite: t.remaining == nil,
		Generation: t.generation,
	}
}
