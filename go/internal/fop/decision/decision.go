// Package decision aggregates the three referee lights into one outcome.
package decision

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Referees on a platform, addressed 1 to 3.
const Referees = 3

// Phase of the decision.
type Phase string

const (
	PhaseEmpty      Phase = "EMPTY"
	PhasePartial    Phase = "PARTIAL"
	PhaseDownSignal Phase = "DOWN_SIGNAL"
	PhaseComplete   Phase = "COMPLETE"
)

var (
	ErrInvalidReferee = errors.New("invalid referee")
	ErrNotComplete    = errors.New("decision not complete")
)

type light struct {
	good bool
	at   time.Time
}

// Machine holds the lights of the current attempt. Each write evaluates the
// two-of-three and three-of-three rules under one lock.
type Machine struct {
	mu          sync.Mutex
	lights      [Referees]*light
	phase       Phase
	good        bool
	downFired   bool
	timeExpired bool
	reversal    bool
}

// Result says what a write changed.
type Result struct {
	// Changed is false when the write was a redelivery or came too late.
	Changed bool
	// DownSignal is true on the one write that fired the down signal.
	DownSignal bool
	// Complete is true on the write that completed the decision.
	Complete bool
}

// Snapshot is a copy of the decision at one instant.
type Snapshot struct {
	Phase       Phase
	Lights      [Referees]*bool
	Good        *bool
	DownSignal  bool
	TimeExpired bool
	Reversal    bool
}

// Visible reports whether the outcome can be shown.
func (s Snapshot) Visible() bool { return s.Phase == PhaseComplete }

func New() *Machine {
	return &Machine{phase: PhaseEmpty}
}

// Record stores a referee light. Re-delivering a light already received is a no-op.
func (m *Machine) Record(referee int, good bool, at time.Time) (Result, error) {
	if referee < 1 || referee > Referees {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidReferee, referee)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseComplete || m.lights[referee-1] != nil {
		return Result{}, nil
	}
	m.lights[referee-1] = &light{good: good, at: at}

	var res Result
	res.Changed = true
	count, goods := m.count()
	switch {
	case count == Referees:
		m.phase = PhaseComplete
		m.good = goods*2 > Referees
		res.Complete = true
	case count >= 2:
		m.phase = PhaseDownSignal
	default:
		m.phase = PhasePartial
	}
	if count >= 2 && !m.downFired {
		m.downFired = true
		res.DownSignal = true
	}
	return res, nil
}

func (m *Machine) count() (count, goods int) {
	for _, l := range m.lights {
		if l == nil {
			continue
		}
		count++
		if l.good {
			goods++
		}
	}
	return count, goods
}

// Expire completes the decision as a no lift because the clock ran out.
// It returns false if the decision was already complete.
func (m *Machine) Expire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseComplete {
		return false
	}
	m.phase = PhaseComplete
	m.good = false
	m.timeExpired = true
	return true
}

// Reverse applies a jury reversal to a complete decision.
func (m *Machine) Reverse(good bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseComplete {
		return ErrNotComplete
	}
	m.good = good
	m.reversal = true
	return nil
}

// Reset clears all lights. It returns false when there was nothing to clear.
func (m *Machine) Reset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseEmpty {
		return false
	}
	m.lights = [Referees]*light{}
	m.phase = PhaseEmpty
	m.good = false
	m.downFired = false
	m.timeExpired = false
	m.reversal = false
	return true
}

// DownSignalPending is true once the down signal fired and until the decision completes.
func (m *Machine) DownSignalPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseDownSignal
}

func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Phase:       m.phase,
		DownSignal:  m.downFired,
		TimeExpired: m.timeExpired,
		Reversal:    m.reversal,
	}
	for i, l := range m.lights {
		if l != nil {
			g := l.good
			s.Lights[i] = &g
		}
	}
	if m.phase == PhaseComplete {
		g := m.good
		s.Good = &g
	}
	return s
}
