// Package orchestrator runs the field-of-play state machine of one platform.
//
// Each FieldOfPlay owns an athlete clock, a break clock and a decision machine. All
// commands go through one mailbox and are handled by the goroutine started with Run,
// so transitions never interleave. Every observable change is published on the
// platform's bus as a UI event, and an immutable Snapshot is swapped in after each
// command for concurrent readers.
package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/bus"
	"github.com/mcdev12/fieldofplay/go/internal/fop/decision"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/timer"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/robbyt/go-fsm"
)

var (
	// ErrInvalidCommand is returned for a command that is not legal in the current state.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrStopped is returned when the command loop is not running any more.
	ErrStopped = errors.New("field of play stopped")
	// ErrInternal is returned when a handler failed unexpectedly and the platform was reset.
	ErrInternal = errors.New("internal fault")
)

// Config holds the competition rules the state machine applies.
type Config struct {
	AttemptTime            time.Duration
	ConsecutiveAttemptTime time.Duration
	DecisionVisible        time.Duration
	MailboxSize            int
	LeaderCount            int
}

func DefaultConfig() Config {
	return Config{
		AttemptTime:            60 * time.Second,
		ConsecutiveAttemptTime: 120 * time.Second,
		DecisionVisible:        3 * time.Second,
		MailboxSize:            64,
		LeaderCount:            3,
	}
}

// Params are the collaborators of a FieldOfPlay.
type Params struct {
	Platform   string
	Repository competition.Repository
	Order      competition.LiftingOrderProvider
	Records    competition.RecordChecker
	Bus        *bus.Bus
	Clock      clockwork.Clock
	Metrics    metrics.Collector
	Config     Config
}

type attemptRef struct {
	athleteID uuid.UUID
	slot      int
}

type liftRef struct {
	athleteID uuid.UUID
	slot      int
	good      bool
}

// expiry identifies the one-shot timers a field of play schedules.
type expiry int

const (
	expiryAthlete expiry = iota
	expiryBreak
	expiryDecision
)

type FieldOfPlay struct {
	platform string
	repo     competition.Repository
	order    competition.LiftingOrderProvider
	records  competition.RecordChecker
	bus      *bus.Bus
	clock    clockwork.Clock
	metrics  metrics.Collector
	cfg      Config

	mailbox chan envelope
	done    chan struct{}

	// owned by the command loop
	machine      *fsm.Machine
	athleteClock *timer.Timer
	breakClock   *timer.Timer
	decision     *decision.Machine
	group        *models.Group
	lifting      competition.LiftingOrder
	breakType    fop.BreakType
	ceremony     fop.CeremonyType
	attempt      *attemptRef
	allotted     time.Duration
	lastLift     *liftRef
	decisionGen  uint64

	activeTimers   map[expiry]clockwork.Timer
	activeTimersMu sync.Mutex

	snapshot atomic.Pointer[Snapshot]
}

// Snapshot is an immutable view of a field of play, safe to share between goroutines.
type Snapshot struct {
	Platform         string
	State            fop.State
	Group            string
	GroupDescription string
	BreakType        fop.BreakType
	Ceremony         fop.CeremonyType
	Current          *events.AthleteView
	Next             *events.AthleteView
	Previous         *events.AthleteView
	DisplayOrder     []events.AthleteView
	Leaders          []events.AthleteView
	LiftsDone        int
	TimeAllowed      time.Duration
	AthleteClock     events.Clock
	BreakClock       events.Clock
	Decision         decision.Snapshot
	UpdatedAt        time.Time
}

// InBreak reports whether displays should show the break clock.
func (s *Snapshot) InBreak() bool {
	return s.State == fop.StateBreak
}

func NewFieldOfPlay(p Params) (*FieldOfPlay, error) {
	if p.Platform == "" {
		return nil, errors.New("platform name is required")
	}
	if p.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if p.Order == nil {
		p.Order = competition.IWFLiftingOrder{}
	}
	if p.Records == nil {
		p.Records = competition.NewRecordTable(nil)
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NoOpCollector{}
	}
	if p.Bus == nil {
		p.Bus = bus.New(p.Platform, p.Metrics)
	}
	def := DefaultConfig()
	if p.Config.AttemptTime <= 0 {
		p.Config.AttemptTime = def.AttemptTime
	}
	if p.Config.ConsecutiveAttemptTime <= 0 {
		p.Config.ConsecutiveAttemptTime = def.ConsecutiveAttemptTime
	}
	if p.Config.DecisionVisible <= 0 {
		p.Config.DecisionVisible = def.DecisionVisible
	}
	if p.Config.MailboxSize <= 0 {
		p.Config.MailboxSize = def.MailboxSize
	}
	if p.Config.LeaderCount <= 0 {
		p.Config.LeaderCount = def.LeaderCount
	}

	machine, err := newMachine()
	if err != nil {
		return nil, fmt.Errorf("platform %s: %w", p.Platform, err)
	}

	f := &FieldOfPlay{
		platform:     p.Platform,
		repo:         p.Repository,
		order:        p.Order,
		records:      p.Records,
		bus:          p.Bus,
		clock:        p.Clock,
		metrics:      p.Metrics,
		cfg:          p.Config,
		mailbox:      make(chan envelope, p.Config.MailboxSize),
		done:         make(chan struct{}),
		machine:      machine,
		athleteClock: timer.New(p.Clock),
		breakClock:   timer.New(p.Clock),
		decision:     decision.New(),
		activeTimers: make(map[expiry]clockwork.Timer),
	}
	f.breakClock.Reset(nil)
	f.publishSnapshot()
	return f, nil
}

func (f *FieldOfPlay) Platform() string { return f.platform }
func (f *FieldOfPlay) Bus() *bus.Bus    { return f.bus }

// Snapshot returns the state published after the last handled command.
func (f *FieldOfPlay) Snapshot() *Snapshot {
	return f.snapshot.Load()
}

// State is a shortcut for Snapshot().State.
func (f *FieldOfPlay) State() fop.State {
	return f.snapshot.Load().State
}

func (f *FieldOfPlay) currentState() fop.State {
	return fop.State(f.machine.GetState())
}

func (f *FieldOfPlay) publishSnapshot() {
	now := f.clock.Now()
	s := &Snapshot{
		Platform:     f.platform,
		State:        f.currentState(),
		BreakType:    f.breakType,
		Ceremony:     f.ceremony,
		Current:      events.ViewOf(f.lifting.Current),
		Next:         events.ViewOf(f.lifting.Next),
		Previous:     events.ViewOf(f.lifting.Previous),
		DisplayOrder: events.Views(f.lifting.DisplayOrder),
		Leaders:      f.leaders(),
		TimeAllowed:  f.timeAllowed(),
		AthleteClock: clockOf(f.athleteClock, now),
		BreakClock:   clockOf(f.breakClock, now),
		Decision:     f.decision.Snapshot(),
		UpdatedAt:    now,
	}
	if f.group != nil {
		s.Group = f.group.Name
		s.GroupDescription = f.group.Description
		s.LiftsDone = f.group.LiftsDone()
	}
	f.snapshot.Store(s)
}

func (f *FieldOfPlay) leaders() []events.AthleteView {
	if f.group == nil || f.lifting.Current == nil {
		return nil
	}
	return events.Views(competition.Leaders(f.group.Athletes, f.lifting.Current.Category, f.cfg.LeaderCount))
}

// timeAllowed is the full allotment of the displayed attempt.
func (f *FieldOfPlay) timeAllowed() time.Duration {
	if f.attempt == nil {
		return 0
	}
	return f.allotted
}

func clockOf(t *timer.Timer, now time.Time) events.Clock {
	c := events.Clock{Running: t.Running(), EndsAt: t.EndsAt()}
	if r := t.RemainingAt(now); r != nil {
		ms := r.Milliseconds()
		c.Millis = &ms
	}
	return c
}
