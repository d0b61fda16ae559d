package orchestrator

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func (e expiry) String() string {
	switch e {
	case expiryAthlete:
		return "athlete"
	case expiryBreak:
		return "break"
	case expiryDecision:
		return "decision"
	}
	return "unknown"
}

// schedule arms a one-shot timer that feeds cmd back into the mailbox when it fires.
// An existing timer of the same kind is replaced. The command carries the generation
// it was scheduled for, so a timer that fires after its context changed is harmless.
func (f *FieldOfPlay) schedule(kind expiry, d time.Duration, cmd Command) {
	t := f.clock.NewTimer(max(d, 0))
	f.replaceTimer(kind, t)

	go func(t clockwork.Timer) {
		select {
		case <-t.Chan():
			f.removeTimer(kind, t)
			if err := f.enqueue(context.Background(), envelope{ctx: context.Background(), cmd: cmd}); err != nil {
				log.Debug().
					Err(err).
					Str("platform", f.platform).
					Str("timer", kind.String()).
					Msg("timer fired after shutdown")
			}
		case <-f.done:
			stopAndDrainTimer(t)
		}
	}(t)

	log.Debug().
		Str("platform", f.platform).
		Str("timer", kind.String()).
		Dur("duration", d).
		Msg("scheduled one-shot timer")
}

// replaceTimer atomically replaces the timer of a kind, cancelling the previous one.
func (f *FieldOfPlay) replaceTimer(kind expiry, t clockwork.Timer) {
	f.activeTimersMu.Lock()
	defer f.activeTimersMu.Unlock()
	if existing, ok := f.activeTimers[kind]; ok {
		stopAndDrainTimer(existing)
	}
	f.activeTimers[kind] = t
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

func (f *FieldOfPlay) cancelTimer(kind expiry) {
	f.activeTimersMu.Lock()
	defer f.activeTimersMu.Unlock()
	if t, ok := f.activeTimers[kind]; ok {
		stopAndDrainTimer(t)
		delete(f.activeTimers, kind)
	}
}

// removeTimer forgets a timer that fired, unless it was already replaced.
func (f *FieldOfPlay) removeTimer(kind expiry, t clockwork.Timer) {
	f.activeTimersMu.Lock()
	defer f.activeTimersMu.Unlock()
	if f.activeTimers[kind] == t {
		delete(f.activeTimers, kind)
	}
}

func (f *FieldOfPlay) cancelAllTimers() {
	f.activeTimersMu.Lock()
	defer f.activeTimersMu.Unlock()
	for kind, t := range f.activeTimers {
		stopAndDrainTimer(t)
		delete(f.activeTimers, kind)
	}
}

// scheduleAthleteExpiry arms the athlete clock expiry for its current generation.
func (f *FieldOfPlay) scheduleAthleteExpiry() {
	if r := f.athleteClock.Remaining(); r != nil && f.athleteClock.Running() {
		f.schedule(expiryAthlete, *r, timeExpired{generation: f.athleteClock.Generation()})
	}
}

// scheduleBreakExpiry arms the break clock expiry when the break has a duration.
func (f *FieldOfPlay) scheduleBreakExpiry() {
	if r := f.breakClock.Remaining(); r != nil && f.breakClock.Running() {
		f.schedule(expiryBreak, *r, breakExpired{generation: f.breakClock.Generation()})
	}
}

func (f *FieldOfPlay) scheduleDecisionReset() {
	f.decisionGen++
	f.schedule(expiryDecision, f.cfg.DecisionVisible, decisionDue{generation: f.decisionGen})
}
