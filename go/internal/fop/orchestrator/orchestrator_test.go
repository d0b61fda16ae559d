package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/bus"
	"github.com/mcdev12/fieldofplay/go/internal/fop/decision"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var competitionDay = time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)

func testAthlete(last string, start, snatch, cleanJerk int) models.Athlete {
	a := models.Athlete{
		ID:          uuid.New(),
		FirstName:   "Test",
		LastName:    last,
		Team:        "CAN",
		Gender:      models.GenderFemale,
		Category:    "F59",
		BodyWeight:  58.2,
		StartNumber: start,
		LotNumber:   start,
	}
	a.Attempts[0].Declaration = snatch
	a.Attempts[models.AttemptsPerLift].Declaration = cleanJerk
	return a
}

// lastLifter has only the final clean and jerk left.
func lastLifter() models.Athlete {
	a := testAthlete("Gamma", 3, 70, 90)
	for slot := 0; slot < models.AttemptSlots-1; slot++ {
		at := competitionDay.Add(time.Duration(slot-10) * time.Minute)
		a.Attempts[slot].Declaration = 70 + slot
		a.Attempts[slot].ActualLift = 70 + slot
		a.Attempts[slot].LiftTime = &at
	}
	a.Attempts[models.AttemptSlots-1].Declaration = 110
	return a
}

// faultyRepository panics on Group while panics is set.
type faultyRepository struct {
	*competition.MemoryRepository
	panics atomic.Bool
}

func (r *faultyRepository) Group(ctx context.Context, name string) (*models.Group, error) {
	if r.panics.Load() {
		panic("roster unavailable")
	}
	return r.MemoryRepository.Group(ctx, name)
}

type harness struct {
	fop    *FieldOfPlay
	clock  *clockwork.FakeClock
	repo   *competition.MemoryRepository
	faults *faultyRepository
	sub    *bus.Subscription
	alpha  models.Athlete
	beta   models.Athlete
}

func newHarness(t *testing.T, records ...models.Record) *harness {
	t.Helper()
	h := &harness{
		clock: clockwork.NewFakeClockAt(competitionDay),
		alpha: testAthlete("Alpha", 1, 80, 100),
		beta:  testAthlete("Beta", 2, 85, 105),
	}
	h.repo = competition.NewMemoryRepository(
		models.Group{
			Name:        "A",
			Description: "Women 59kg A",
			Athletes:    []models.Athlete{h.alpha, h.beta},
		},
		models.Group{Name: "B", Athletes: []models.Athlete{lastLifter()}},
	)
	h.faults = &faultyRepository{MemoryRepository: h.repo}

	f, err := NewFieldOfPlay(Params{
		Platform:   "Platform A",
		Repository: h.faults,
		Records:    competition.NewRecordTable(records),
		Clock:      h.clock,
	})
	require.NoError(t, err)
	h.fop = f
	h.sub = f.Bus().Subscribe("test", 1024)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = f.Run(ctx) }()
	return h
}

func (h *harness) do(t *testing.T, cmd Command) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.fop.Do(ctx, cmd)
}

func (h *harness) must(t *testing.T, cmds ...Command) {
	t.Helper()
	for _, cmd := range cmds {
		require.NoError(t, h.do(t, cmd), cmd.Name())
	}
}

// drain returns the events published so far.
func (h *harness) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-h.sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (h *harness) waitFor(t *testing.T, state fop.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.fop.State() == state
	}, 2*time.Second, 5*time.Millisecond, "waiting for %s", state)
}

func (h *harness) athlete(t *testing.T, id uuid.UUID) models.Athlete {
	t.Helper()
	g, err := h.repo.Group(context.Background(), "A")
	require.NoError(t, err)
	a, ok := g.Athlete(id)
	require.True(t, ok)
	return a
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Kind())
	}
	return out
}

func find[T events.Event](evs []events.Event) (T, bool) {
	for _, ev := range evs {
		if v, ok := ev.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// toRunningClock switches to group A, ends the break and starts the first athlete's clock.
func (h *harness) toRunningClock(t *testing.T) {
	t.Helper()
	h.must(t, SwitchGroup{Group: "A"}, EndBreak{}, StartTime{})
	require.Equal(t, fop.StateTimeRunning, h.fop.State())
	h.drain()
}

func TestNewFieldOfPlayIsInactive(t *testing.T) {
	h := newHarness(t)
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateInactive, s.State)
	assert.Equal(t, "Platform A", s.Platform)
	assert.Empty(t, s.Group)
	assert.Nil(t, s.Current)
}

func TestNewFieldOfPlayRequiresRepository(t *testing.T) {
	_, err := NewFieldOfPlay(Params{Platform: "A"})
	require.Error(t, err)
}

func TestSwitchGroupStartsBreak(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})

	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateBreak, s.State)
	assert.Equal(t, fop.BreakBeforeIntroduction, s.BreakType)
	assert.Equal(t, "A", s.Group)
	assert.Equal(t, "Women 59kg A", s.GroupDescription)
	require.NotNil(t, s.Current)
	assert.Equal(t, h.alpha.ID, s.Current.ID)
	assert.True(t, s.BreakClock.Indefinite())

	assert.Equal(t, []events.Kind{
		events.KindGroupSwitched,
		events.KindBreakStarted,
		events.KindLiftingOrderUpdated,
	}, kinds(h.drain()))
}

func TestSwitchToUnknownGroupKeepsState(t *testing.T) {
	h := newHarness(t)
	err := h.do(t, SwitchGroup{Group: "Z"})
	require.ErrorIs(t, err, competition.ErrNotFound)
	assert.Equal(t, fop.StateInactive, h.fop.State())
	assert.Empty(t, h.drain())
}

func TestInvalidCommandLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	for _, cmd := range []Command{StartTime{}, StopTime{}, EndBreak{}, RecordAttempt{}, ResetDecision{}, RefereeDecision{Referee: 1, Good: true}} {
		err := h.do(t, cmd)
		require.ErrorIs(t, err, ErrInvalidCommand, cmd.Name())
		assert.Equal(t, fop.StateInactive, h.fop.State())
	}
	assert.Empty(t, h.drain())

	err := h.do(t, StartBreak{BreakType: "NAP"})
	require.ErrorIs(t, err, ErrInvalidCommand)
	assert.Contains(t, err.Error(), "StartBreak in INACTIVE")
}

func TestEndBreakDisplaysFirstAthlete(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})
	h.drain()
	h.must(t, EndBreak{})

	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, s.State)
	assert.Equal(t, fop.BreakNone, s.BreakType)
	require.NotNil(t, s.Current)
	assert.Equal(t, h.alpha.ID, s.Current.ID)
	require.NotNil(t, s.Next)
	assert.Equal(t, h.beta.ID, s.Next.ID)
	assert.Equal(t, 60*time.Second, s.TimeAllowed)
	require.NotNil(t, s.AthleteClock.Millis)
	assert.Equal(t, int64(60000), *s.AthleteClock.Millis)
	assert.False(t, s.AthleteClock.Running)

	assert.Equal(t, []events.Kind{events.KindBreakDone, events.KindLiftingOrderUpdated}, kinds(h.drain()))
}

func TestRefereeMajorityWithDownSignal(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)

	h.must(t, RefereeDecision{Referee: 1, Good: true})
	assert.Empty(t, h.drain())

	h.must(t, RefereeDecision{Referee: 2, Good: false})
	assert.Equal(t, []events.Kind{events.KindDownSignal, events.KindStopTime}, kinds(h.drain()))
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateTimeStopped, s.State)
	assert.False(t, s.AthleteClock.Running)
	assert.Equal(t, decision.PhaseDownSignal, s.Decision.Phase)

	// neither a break nor a restart can interrupt a pending decision
	require.ErrorIs(t, h.do(t, StartBreak{BreakType: fop.BreakTechnical}), ErrInvalidCommand)
	require.ErrorIs(t, h.do(t, StartTime{}), ErrInvalidCommand)

	// redelivery is ignored
	h.must(t, RefereeDecision{Referee: 2, Good: false})
	assert.Empty(t, h.drain())

	h.must(t, RefereeDecision{Referee: 3, Good: true})
	assert.Equal(t, fop.StateDecisionVisible, h.fop.State())
	evs := h.drain()
	given, ok := find[events.DecisionGiven](evs)
	require.True(t, ok)
	require.NotNil(t, given.D1)
	require.NotNil(t, given.D2)
	require.NotNil(t, given.D3)
	assert.True(t, *given.D1)
	assert.False(t, *given.D2)
	assert.True(t, *given.D3)
	assert.True(t, given.Good)
	assert.False(t, given.TimeExpired)
	require.NotNil(t, given.Athlete)
	assert.Equal(t, h.alpha.ID, given.Athlete.ID)

	// late light after completion
	h.must(t, RefereeDecision{Referee: 1, Good: false})
	assert.Equal(t, fop.StateDecisionVisible, h.fop.State())
}

func TestResetDecisionRecordsLiftAndGivesConsecutiveTime(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: false},
	)
	h.drain()

	h.must(t, ResetDecision{})

	a := h.athlete(t, h.alpha.ID)
	assert.Equal(t, 80, a.Attempts[0].ActualLift)
	assert.Equal(t, 81, a.Attempts[1].Declaration)

	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, s.State)
	require.NotNil(t, s.Current)
	assert.Equal(t, h.alpha.ID, s.Current.ID)
	assert.Equal(t, 2, s.Current.AttemptNumber)
	assert.Equal(t, 81, s.Current.Weight)
	assert.Equal(t, 120*time.Second, s.TimeAllowed)
	assert.Equal(t, decision.PhaseEmpty, s.Decision.Phase)
	require.NotNil(t, s.Previous)
	assert.Equal(t, h.alpha.ID, s.Previous.ID)

	assert.Equal(t, []events.Kind{events.KindDecisionReset, events.KindLiftingOrderUpdated}, kinds(h.drain()))
}

func TestDecisionResetsAutomatically(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: false},
		RefereeDecision{Referee: 2, Good: false},
		RefereeDecision{Referee: 3, Good: false},
	)
	require.Equal(t, fop.StateDecisionVisible, h.fop.State())

	h.clock.Advance(3 * time.Second)
	h.waitFor(t, fop.StateCurrentAthleteDisplayed)

	a := h.athlete(t, h.alpha.ID)
	assert.Equal(t, -80, a.Attempts[0].ActualLift)
	assert.Equal(t, 80, a.Attempts[1].Declaration)
}

func TestAthleteClockExpiry(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)

	h.clock.Advance(59 * time.Second)
	assert.Equal(t, fop.StateTimeRunning, h.fop.State())

	h.clock.Advance(time.Second)
	h.waitFor(t, fop.StateDecisionVisible)

	s := h.fop.Snapshot()
	assert.True(t, s.Decision.TimeExpired)
	require.NotNil(t, s.Decision.Good)
	assert.False(t, *s.Decision.Good)
	given, ok := find[events.DecisionGiven](h.drain())
	require.True(t, ok)
	assert.True(t, given.TimeExpired)
	assert.False(t, given.Good)

	h.clock.Advance(3 * time.Second)
	h.waitFor(t, fop.StateCurrentAthleteDisplayed)
	a := h.athlete(t, h.alpha.ID)
	assert.Equal(t, -80, a.Attempts[0].ActualLift)
}

func TestPausedClockResumesRemainingTime(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)

	h.clock.Advance(10 * time.Second)
	h.must(t, StopTime{})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateTimeStopped, s.State)
	require.NotNil(t, s.AthleteClock.Millis)
	assert.Equal(t, int64(50000), *s.AthleteClock.Millis)

	// a stopped clock never expires
	h.clock.Advance(5 * time.Minute)
	assert.Equal(t, fop.StateTimeStopped, h.fop.State())

	h.must(t, StartTime{})
	s = h.fop.Snapshot()
	require.NotNil(t, s.AthleteClock.EndsAt)
	assert.Equal(t, h.clock.Now().Add(50*time.Second), *s.AthleteClock.EndsAt)

	h.clock.Advance(49 * time.Second)
	assert.Equal(t, fop.StateTimeRunning, h.fop.State())
	h.clock.Advance(time.Second)
	h.waitFor(t, fop.StateDecisionVisible)
}

func TestRecordAttemptStopsClock(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.clock.Advance(20 * time.Second)

	h.must(t, RecordAttempt{})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateTimeStopped, s.State)
	assert.Equal(t, int64(40000), *s.AthleteClock.Millis)
	assert.Equal(t, []events.Kind{events.KindStopTime}, kinds(h.drain()))

	h.must(t,
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: true},
	)
	assert.Equal(t, fop.StateDecisionVisible, h.fop.State())
}

func TestSetTimeOnAthleteClock(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t, SetTime{Remaining: 30 * time.Second})

	h.clock.Advance(29 * time.Second)
	assert.Equal(t, fop.StateTimeRunning, h.fop.State())
	h.clock.Advance(time.Second)
	h.waitFor(t, fop.StateDecisionVisible)
}

func TestCountdownBreakEndsOnExpiry(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})
	h.drain()

	d := 10 * time.Minute
	h.must(t, StartBreak{BreakType: fop.BreakFirstSnatch, Duration: &d})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.BreakFirstSnatch, s.BreakType)
	require.NotNil(t, s.BreakClock.Millis)
	assert.Equal(t, int64(600000), *s.BreakClock.Millis)
	assert.True(t, s.BreakClock.Running)

	started, ok := find[events.BreakStarted](h.drain())
	require.True(t, ok)
	assert.True(t, started.Break)
	assert.Equal(t, fop.BreakFirstSnatch, started.BreakType)

	h.clock.Advance(d)
	h.waitFor(t, fop.StateCurrentAthleteDisplayed)
	done, ok := find[events.BreakDone](h.drain())
	require.True(t, ok)
	assert.Equal(t, fop.BreakFirstSnatch, done.BreakType)
}

func TestPausedBreakClock(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})
	d := 10 * time.Minute
	h.must(t, StartBreak{BreakType: fop.BreakFirstSnatch, Duration: &d})
	h.clock.Advance(4 * time.Minute)
	h.must(t, StopTime{})
	h.drain()

	h.clock.Advance(time.Hour)
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateBreak, s.State)
	assert.Equal(t, int64(360000), *s.BreakClock.Millis)

	h.must(t, StartTime{})
	h.clock.Advance(6 * time.Minute)
	h.waitFor(t, fop.StateCurrentAthleteDisplayed)
}

func TestSetTimeGivesCountdownBreakAClock(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})
	h.must(t, SetTime{Remaining: 5 * time.Minute})

	s := h.fop.Snapshot()
	require.NotNil(t, s.BreakClock.Millis)
	assert.Equal(t, int64(300000), *s.BreakClock.Millis)

	h.clock.Advance(5 * time.Minute)
	h.waitFor(t, fop.StateCurrentAthleteDisplayed)
}

func TestInterruptionBreakHasNoClock(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.clock.Advance(15 * time.Second)

	h.must(t, StartBreak{BreakType: fop.BreakJury})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateBreak, s.State)
	assert.True(t, s.BreakClock.Indefinite())
	assert.False(t, s.AthleteClock.Running)
	assert.Equal(t, int64(45000), *s.AthleteClock.Millis)

	require.ErrorIs(t, h.do(t, SetTime{Remaining: time.Minute}), ErrInvalidCommand)

	// the athlete keeps the remaining time after the interruption
	h.must(t, EndBreak{})
	s = h.fop.Snapshot()
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, s.State)
	assert.Equal(t, int64(45000), *s.AthleteClock.Millis)
}

func TestStartBreakStopsRunningClock(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.clock.Advance(20 * time.Second)

	h.must(t, StartBreak{BreakType: fop.BreakTechnical})
	evs := h.drain()
	assert.Equal(t, []events.Kind{
		events.KindStopTime,
		events.KindBreakStarted,
		events.KindLiftingOrderUpdated,
	}, kinds(evs))
	stop, _ := find[events.StopTime](evs)
	assert.False(t, stop.Break)
	assert.False(t, stop.Clock.Running)
	require.NotNil(t, stop.Clock.Millis)
	assert.Equal(t, int64(40000), *stop.Clock.Millis)

	// a break from a stopped clock has nothing to stop
	h.must(t, EndBreak{}, StartBreak{BreakType: fop.BreakJury})
	assert.NotContains(t, kinds(h.drain()), events.KindStopTime)
}

func TestStartBreakDuringDecisionRecordsLift(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: true},
		StartBreak{BreakType: fop.BreakTechnical},
	)
	assert.Equal(t, fop.StateBreak, h.fop.State())
	assert.Equal(t, 80, h.athlete(t, h.alpha.ID).Attempts[0].ActualLift)

	// the pending automatic reset must not fire into the break
	h.clock.Advance(3 * time.Second)
	assert.Equal(t, fop.StateBreak, h.fop.State())
}

func TestJuryReversalWhileDecisionVisible(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: false},
		RefereeDecision{Referee: 2, Good: false},
		RefereeDecision{Referee: 3, Good: true},
	)
	h.drain()

	h.must(t, JuryDecision{Good: true})
	evs := h.drain()
	given, ok := find[events.DecisionGiven](evs)
	require.True(t, ok)
	assert.True(t, given.Reversal)
	assert.True(t, given.Good)
	jury, ok := find[events.JuryNotification](evs)
	require.True(t, ok)
	assert.Equal(t, events.JuryReversal, jury.Type)
	assert.True(t, jury.Good)

	h.must(t, ResetDecision{})
	assert.Equal(t, 80, h.athlete(t, h.alpha.ID).Attempts[0].ActualLift)
}

func TestJuryReversalAfterReset(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: true},
		ResetDecision{},
	)
	h.drain()

	h.must(t, JuryDecision{Good: false})
	a := h.athlete(t, h.alpha.ID)
	assert.Equal(t, -80, a.Attempts[0].ActualLift)

	evs := h.drain()
	jury, ok := find[events.JuryNotification](evs)
	require.True(t, ok)
	assert.Equal(t, events.JuryReversal, jury.Type)
	assert.False(t, jury.Good)
	require.NotNil(t, jury.Athlete)
	assert.Equal(t, h.alpha.ID, jury.Athlete.ID)
	assert.Contains(t, kinds(evs), events.KindLiftingOrderUpdated)
}

func TestJuryReversalWithoutDecisionIsInvalid(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"}, EndBreak{})
	require.ErrorIs(t, h.do(t, JuryDecision{Good: true}), ErrInvalidCommand)
}

func TestGoodLiftChallengingRecordNotifiesJury(t *testing.T) {
	h := newHarness(t, models.Record{
		Federation:    "IWF",
		Name:          "World",
		Gender:        models.GenderFemale,
		BodyWeightMin: 55,
		BodyWeightMax: 59,
		Lift:          models.LiftSnatch,
		Value:         79,
	})
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: true},
	)

	evs := h.drain()
	assert.Equal(t, []events.Kind{
		events.KindDownSignal,
		events.KindStopTime,
		events.KindDecisionGiven,
		events.KindJuryNotification,
	}, kinds(evs))
	jury, _ := find[events.JuryNotification](evs)
	assert.Equal(t, events.JuryNewRecord, jury.Type)
	assert.True(t, jury.NewRecord)
	require.Len(t, jury.Records, 1)
	assert.Equal(t, 79, jury.Records[0].Value)
}

func TestBadLiftDoesNotNotifyRecord(t *testing.T) {
	h := newHarness(t, models.Record{
		Gender:        models.GenderFemale,
		BodyWeightMin: 55,
		BodyWeightMax: 59,
		Lift:          models.LiftSnatch,
		Value:         79,
	})
	h.toRunningClock(t)
	h.must(t,
		RefereeDecision{Referee: 1, Good: false},
		RefereeDecision{Referee: 2, Good: false},
		RefereeDecision{Referee: 3, Good: true},
	)
	_, ok := find[events.JuryNotification](h.drain())
	assert.False(t, ok)
}

func TestChangeWeightReordersAthletes(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"}, EndBreak{})
	h.drain()

	h.must(t, ChangeWeight{AthleteID: h.alpha.ID, Weight: 90})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, s.State)
	require.NotNil(t, s.Current)
	assert.Equal(t, h.beta.ID, s.Current.ID)
	assert.Equal(t, 85, s.Current.Weight)
	require.NotNil(t, s.Next)
	assert.Equal(t, 90, s.Next.Weight)
}

func TestChangeWeightRuleViolation(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"}, EndBreak{})
	h.drain()

	err := h.do(t, ChangeWeight{AthleteID: h.alpha.ID, Weight: 70})
	require.ErrorIs(t, err, competition.ErrRuleViolation)
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, h.fop.State())

	note, ok := find[events.Notification](h.drain())
	require.True(t, ok)
	assert.Equal(t, events.LevelWarning, note.Level)
	assert.Contains(t, note.Message, "below")
	assert.Equal(t, 80, h.athlete(t, h.alpha.ID).Attempts[0].Requested())
}

func TestChangeWeightRequiresGroup(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.do(t, ChangeWeight{AthleteID: h.alpha.ID, Weight: 90}), ErrInvalidCommand)
}

func TestRunningClockStopsWhenAthleteIsReplaced(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)

	h.must(t, ChangeWeight{AthleteID: h.alpha.ID, Weight: 90})
	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, s.State)
	assert.Equal(t, h.beta.ID, s.Current.ID)
	assert.False(t, s.AthleteClock.Running)
	assert.Equal(t, int64(60000), *s.AthleteClock.Millis)
	assert.Contains(t, kinds(h.drain()), events.KindStopTime)
}

func TestGroupDoneAfterLastLift(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "B"})
	assert.Equal(t, fop.BreakTechnical, h.fop.Snapshot().BreakType)
	h.must(t, EndBreak{}, StartTime{},
		RefereeDecision{Referee: 1, Good: true},
		RefereeDecision{Referee: 2, Good: true},
		RefereeDecision{Referee: 3, Good: true},
	)
	h.drain()
	h.must(t, ResetDecision{})

	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateBreak, s.State)
	assert.Equal(t, fop.BreakGroupDone, s.BreakType)
	assert.Nil(t, s.Current)
	assert.Equal(t, models.AttemptSlots, s.LiftsDone)
	assert.Equal(t, []events.Kind{
		events.KindDecisionReset,
		events.KindGroupDone,
		events.KindBreakStarted,
		events.KindLiftingOrderUpdated,
	}, kinds(h.drain()))

	require.ErrorIs(t, h.do(t, RefereeDecision{Referee: 1, Good: true}), ErrInvalidCommand)
}

func TestCeremonies(t *testing.T) {
	h := newHarness(t)
	h.must(t, SwitchGroup{Group: "A"})
	h.drain()

	h.must(t, StartCeremony{Ceremony: fop.CeremonyIntroduction})
	assert.Equal(t, fop.CeremonyIntroduction, h.fop.Snapshot().Ceremony)
	require.ErrorIs(t, h.do(t, EndCeremony{Ceremony: fop.CeremonyMedals}), ErrInvalidCommand)
	h.must(t, EndCeremony{Ceremony: fop.CeremonyIntroduction})
	assert.Equal(t, fop.CeremonyNone, h.fop.Snapshot().Ceremony)

	assert.Equal(t, []events.Kind{events.KindCeremonyStarted, events.KindCeremonyDone}, kinds(h.drain()))
}

func TestForcedBreakWithoutGroup(t *testing.T) {
	h := newHarness(t)
	h.must(t, StartBreak{BreakType: fop.BreakTechnical})
	assert.Equal(t, fop.StateBreak, h.fop.State())
	h.must(t, EndBreak{})
	assert.Equal(t, fop.StateInactive, h.fop.State())
}

func TestReleasePlatform(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)
	h.must(t, ReleasePlatform{})

	s := h.fop.Snapshot()
	assert.Equal(t, fop.StateInactive, s.State)
	assert.Empty(t, s.Group)
	assert.Nil(t, s.Current)
	switched, ok := find[events.GroupSwitched](h.drain())
	require.True(t, ok)
	assert.Empty(t, switched.Group)

	// the expiry of the released clock is gone
	h.clock.Advance(2 * time.Minute)
	assert.Equal(t, fop.StateInactive, h.fop.State())
}

func TestPanicRevertsToInactive(t *testing.T) {
	h := newHarness(t)
	h.toRunningClock(t)

	h.faults.panics.Store(true)
	err := h.do(t, AthleteDataChanged{})
	require.ErrorIs(t, err, ErrInternal)
	h.faults.panics.Store(false)
	assert.Equal(t, fop.StateInactive, h.fop.State())
	switched, ok := find[events.GroupSwitched](h.drain())
	require.True(t, ok)
	assert.Empty(t, switched.Group)

	// the loop survives the fault
	h.must(t, SwitchGroup{Group: "A"})
	assert.Equal(t, fop.StateBreak, h.fop.State())
}

func TestDoAfterShutdown(t *testing.T) {
	f, err := NewFieldOfPlay(Params{Platform: "A", Repository: competition.NewMemoryRepository()})
	require.NoError(t, err)
	assert.False(t, f.Stopped())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Run(ctx))

	assert.True(t, f.Stopped())
	assert.Zero(t, f.Pending())
	require.ErrorIs(t, f.Do(context.Background(), StartTime{}), ErrStopped)
}
