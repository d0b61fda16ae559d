package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/decision"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/rs/zerolog/log"
)

func (f *FieldOfPlay) dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case SwitchGroup:
		return f.handleSwitchGroup(ctx, c)
	case ReleasePlatform:
		f.clearPlatform()
		f.publish(events.GroupSwitched{Header: f.header()})
		return nil
	case StartBreak:
		return f.handleStartBreak(ctx, c)
	case EndBreak:
		if f.currentState() != fop.StateBreak {
			return f.invalid(c, "no break in progress")
		}
		return f.endBreak()
	case breakExpired:
		if f.currentState() != fop.StateBreak || c.generation != f.breakClock.Generation() {
			f.stale(c)
			return nil
		}
		return f.endBreak()
	case StartCeremony:
		return f.handleStartCeremony(c)
	case EndCeremony:
		return f.handleEndCeremony(c)
	case StartTime:
		return f.handleStartTime(c)
	case StopTime:
		return f.handleStopTime(c)
	case SetTime:
		return f.handleSetTime(c)
	case RecordAttempt:
		if f.currentState() != fop.StateTimeRunning {
			return f.invalid(c, "clock is not running")
		}
		return f.stopAthleteClock()
	case RefereeDecision:
		return f.handleRefereeDecision(c)
	case timeExpired:
		return f.handleTimeExpired(c)
	case ResetDecision:
		return f.handleResetDecision(ctx, c)
	case decisionDue:
		if c.generation != f.decisionGen || f.currentState() != fop.StateDecisionVisible {
			f.stale(c)
			return nil
		}
		return f.resetAfterDecision(ctx)
	case JuryDecision:
		return f.handleJuryDecision(ctx, c)
	case ChangeWeight:
		return f.handleChangeWeight(ctx, c)
	case AthleteDataChanged:
		if f.group == nil {
			return nil
		}
		if err := f.reload(ctx); err != nil {
			return err
		}
		return f.refreshOrder()
	}
	return fmt.Errorf("%w: unhandled command %s", ErrInvalidCommand, cmd.Name())
}

func (f *FieldOfPlay) invalid(cmd Command, reason string) error {
	return fmt.Errorf("%w: %s in %s: %s", ErrInvalidCommand, cmd.Name(), f.currentState(), reason)
}

func (f *FieldOfPlay) stale(cmd Command) {
	log.Debug().
		Str("platform", f.platform).
		Str("command", cmd.Name()).
		Str("state", string(f.currentState())).
		Msg("ignoring stale timer")
}

// transition moves the state machine, treating a move to the current state as done.
func (f *FieldOfPlay) transition(to fop.State) error {
	if f.currentState() == to {
		return nil
	}
	if err := f.machine.Transition(string(to)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return nil
}

func (f *FieldOfPlay) handleSwitchGroup(ctx context.Context, c SwitchGroup) error {
	if c.Group == "" {
		return f.dispatch(ctx, ReleasePlatform{})
	}
	g, err := f.repo.Group(ctx, c.Group)
	if err != nil {
		return fmt.Errorf("switch to group %s: %w", c.Group, err)
	}

	f.cancelAllTimers()
	f.decision.Reset()
	f.decisionGen++
	f.athleteClock.Reset(nil)
	f.attempt = nil
	f.allotted = 0
	f.lastLift = nil
	f.ceremony = fop.CeremonyNone
	f.group = g
	f.lifting = f.order.Compute(g.Athletes)

	switch cur := f.lifting.Current; {
	case cur == nil:
		f.breakType = fop.BreakGroupDone
	case g.LiftsDone() == 0:
		f.breakType = fop.BreakBeforeIntroduction
	case cur.CurrentLift() == models.LiftCleanJerk && !cleanJerkStarted(g.Athletes):
		f.breakType = fop.BreakFirstCJ
	default:
		f.breakType = fop.BreakTechnical
	}
	f.breakClock.Reset(nil)
	f.breakClock.Start()
	if err := f.transition(fop.StateBreak); err != nil {
		return err
	}

	f.publish(events.GroupSwitched{Header: f.header(), Group: g.Name, Description: g.Description})
	f.publish(events.BreakStarted{Header: f.header(), TimerInfo: f.breakInfo()})
	f.publishOrder()
	return nil
}

func cleanJerkStarted(athletes []models.Athlete) bool {
	for _, a := range athletes {
		for slot := models.AttemptsPerLift; slot < models.AttemptSlots; slot++ {
			if a.Attempts[slot].Done() {
				return true
			}
		}
	}
	return false
}

func (f *FieldOfPlay) handleStartBreak(ctx context.Context, c StartBreak) error {
	if !c.BreakType.Valid() {
		return f.invalid(c, fmt.Sprintf("unknown break type %q", c.BreakType))
	}
	if c.Ceremony != fop.CeremonyNone && !c.Ceremony.Valid() {
		return f.invalid(c, fmt.Sprintf("unknown ceremony %q", c.Ceremony))
	}
	if f.decision.DownSignalPending() {
		return f.invalid(c, "down signal pending")
	}

	if f.currentState() == fop.StateDecisionVisible {
		if err := f.recordDecision(ctx); err != nil {
			return err
		}
		if f.group != nil {
			f.lifting = f.order.Compute(f.group.Athletes)
			f.advanceAttempt()
		}
	} else if f.decision.Reset() {
		f.publish(events.DecisionReset{Header: f.header()})
	}

	wasRunning := f.athleteClock.Running()
	if wasRunning {
		f.athleteClock.Pause()
	}
	f.cancelTimer(expiryAthlete)
	f.cancelTimer(expiryBreak)
	if wasRunning {
		f.publish(events.StopTime{Header: f.header(), TimerInfo: f.athleteInfo()})
	}

	f.breakType = c.BreakType
	if c.BreakType.Countdown() && c.Duration != nil {
		f.breakClock.Reset(c.Duration)
	} else {
		f.breakClock.Reset(nil)
	}
	f.breakClock.Start()
	f.scheduleBreakExpiry()

	if err := f.transition(fop.StateBreak); err != nil {
		return err
	}
	f.publish(events.BreakStarted{Header: f.header(), TimerInfo: f.breakInfo(), Ceremony: c.Ceremony})
	if c.Ceremony != fop.CeremonyNone {
		f.ceremony = c.Ceremony
		f.publish(events.CeremonyStarted{Header: f.header(), Ceremony: c.Ceremony})
	}
	f.publishOrder()
	return nil
}

// endBreak closes the break and shows the next athlete, or keeps a GROUP_DONE break
// when nobody is left to lift.
func (f *FieldOfPlay) endBreak() error {
	ended := f.breakType
	f.breakClock.Stop()
	f.cancelTimer(expiryBreak)
	f.publish(events.BreakDone{Header: f.header(), BreakType: ended})

	if f.group == nil {
		// a break forced without a group ends with nothing to show
		f.breakType = fop.BreakNone
		return f.transition(fop.StateInactive)
	}
	f.lifting = f.order.Compute(f.group.Athletes)
	if f.lifting.Current == nil {
		f.breakType = fop.BreakGroupDone
		f.breakClock.Reset(nil)
		f.breakClock.Start()
		f.publish(events.GroupDone{Header: f.header(), Group: f.group.Name})
		f.publishOrder()
		return nil
	}

	f.displayAthlete(*f.lifting.Current)
	f.breakType = fop.BreakNone
	if err := f.transition(fop.StateCurrentAthleteDisplayed); err != nil {
		return err
	}
	f.publishOrder()
	return nil
}

func (f *FieldOfPlay) handleStartCeremony(c StartCeremony) error {
	if !c.Ceremony.Valid() {
		return f.invalid(c, fmt.Sprintf("unknown ceremony %q", c.Ceremony))
	}
	f.ceremony = c.Ceremony
	f.publish(events.CeremonyStarted{Header: f.header(), Ceremony: c.Ceremony})
	return nil
}

func (f *FieldOfPlay) handleEndCeremony(c EndCeremony) error {
	if !c.Ceremony.Valid() {
		return f.invalid(c, fmt.Sprintf("unknown ceremony %q", c.Ceremony))
	}
	if f.ceremony != c.Ceremony {
		return f.invalid(c, fmt.Sprintf("ceremony %s is not in progress", c.Ceremony))
	}
	f.ceremony = fop.CeremonyNone
	f.publish(events.CeremonyDone{Header: f.header(), Ceremony: c.Ceremony})
	return nil
}

func (f *FieldOfPlay) handleStartTime(c StartTime) error {
	switch f.currentState() {
	case fop.StateBreak:
		f.breakClock.Start()
		f.scheduleBreakExpiry()
		f.publish(events.StartTime{Header: f.header(), TimerInfo: f.breakInfo()})
		return nil
	case fop.StateCurrentAthleteDisplayed, fop.StateTimeStopped:
		if f.attempt == nil {
			return f.invalid(c, "no athlete displayed")
		}
		if f.decision.DownSignalPending() {
			return f.invalid(c, "down signal pending")
		}
		f.athleteClock.Start()
		f.scheduleAthleteExpiry()
		if err := f.transition(fop.StateTimeRunning); err != nil {
			return err
		}
		f.publish(events.StartTime{Header: f.header(), TimerInfo: f.athleteInfo()})
		return nil
	}
	return f.invalid(c, "no clock to start")
}

func (f *FieldOfPlay) handleStopTime(c StopTime) error {
	switch f.currentState() {
	case fop.StateBreak:
		if f.breakClock.Indefinite() || !f.breakClock.Running() {
			return f.invalid(c, "break clock is not counting down")
		}
		f.breakClock.Pause()
		f.cancelTimer(expiryBreak)
		f.publish(events.BreakPaused{Header: f.header(), TimerInfo: f.breakInfo()})
		return nil
	case fop.StateTimeRunning:
		return f.stopAthleteClock()
	}
	return f.invalid(c, "clock is not running")
}

func (f *FieldOfPlay) stopAthleteClock() error {
	f.athleteClock.Pause()
	f.cancelTimer(expiryAthlete)
	if err := f.transition(fop.StateTimeStopped); err != nil {
		return err
	}
	f.publish(events.StopTime{Header: f.header(), TimerInfo: f.athleteInfo()})
	return nil
}

func (f *FieldOfPlay) handleSetTime(c SetTime) error {
	if c.Remaining < 0 {
		return f.invalid(c, "negative time")
	}
	switch f.currentState() {
	case fop.StateBreak:
		switch {
		case f.breakClock.Indefinite() && f.breakType.Countdown():
			running := f.breakClock.Running()
			d := c.Remaining
			f.breakClock.Reset(&d)
			if running {
				f.breakClock.Start()
			}
		case f.breakClock.Indefinite():
			return f.invalid(c, fmt.Sprintf("%s break has no clock", f.breakType))
		default:
			f.breakClock.SetTime(c.Remaining)
		}
		f.cancelTimer(expiryBreak)
		f.scheduleBreakExpiry()
		f.publish(events.SetTime{Header: f.header(), TimerInfo: f.breakInfo()})
		return nil
	case fop.StateCurrentAthleteDisplayed, fop.StateTimeStopped, fop.StateTimeRunning:
		if f.attempt == nil {
			return f.invalid(c, "no athlete displayed")
		}
		f.athleteClock.SetTime(c.Remaining)
		f.cancelTimer(expiryAthlete)
		f.scheduleAthleteExpiry()
		f.publish(events.SetTime{Header: f.header(), TimerInfo: f.athleteInfo()})
		return nil
	}
	return f.invalid(c, "no clock to set")
}

func (f *FieldOfPlay) handleRefereeDecision(c RefereeDecision) error {
	switch f.currentState() {
	case fop.StateCurrentAthleteDisplayed, fop.StateTimeRunning, fop.StateTimeStopped:
	case fop.StateDecisionVisible:
		// late light after the decision was shown
		return nil
	default:
		return f.invalid(c, "no attempt in progress")
	}
	if f.attempt == nil {
		return f.invalid(c, "no athlete displayed")
	}

	res, err := f.decision.Record(c.Referee, c.Good, f.clock.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !res.Changed {
		return nil
	}

	if res.DownSignal {
		wasRunning := f.athleteClock.Running()
		f.athleteClock.Pause()
		f.cancelTimer(expiryAthlete)
		f.publish(events.DownSignal{Header: f.header()})
		if wasRunning {
			f.publish(events.StopTime{Header: f.header(), TimerInfo: f.athleteInfo()})
		}
		if f.currentState() == fop.StateTimeRunning {
			if err := f.transition(fop.StateTimeStopped); err != nil {
				return err
			}
		}
	}
	if res.Complete {
		return f.showDecision()
	}
	return nil
}

// showDecision moves to DECISION_VISIBLE with a complete decision and arms the
// automatic reset.
func (f *FieldOfPlay) showDecision() error {
	if f.athleteClock.Running() {
		f.athleteClock.Pause()
	}
	f.cancelTimer(expiryAthlete)
	if err := f.transition(fop.StateDecisionVisible); err != nil {
		return err
	}

	snap := f.decision.Snapshot()
	good := snap.Good != nil && *snap.Good
	athlete, weight := f.attemptAthlete()
	f.publish(events.DecisionGiven{
		Header:      f.header(),
		D1:          snap.Lights[0],
		D2:          snap.Lights[1],
		D3:          snap.Lights[2],
		Good:        good,
		TimeExpired: snap.TimeExpired,
		Reversal:    snap.Reversal,
		Athlete:     events.ViewOf(athlete),
	})
	if good && athlete != nil {
		f.notifyRecords(*athlete, weight, good)
	}
	f.scheduleDecisionReset()
	return nil
}

func (f *FieldOfPlay) handleTimeExpired(c timeExpired) error {
	if f.currentState() != fop.StateTimeRunning || c.generation != f.athleteClock.Generation() {
		f.stale(c)
		return nil
	}
	f.athleteClock.Stop()
	if !f.decision.Expire() {
		return nil
	}
	log.Info().
		Str("platform", f.platform).
		Str("athlete", f.attempt.athleteID.String()).
		Msg("attempt time expired")
	return f.showDecision()
}

func (f *FieldOfPlay) handleResetDecision(ctx context.Context, c ResetDecision) error {
	switch f.currentState() {
	case fop.StateDecisionVisible:
		return f.resetAfterDecision(ctx)
	case fop.StateTimeStopped, fop.StateCurrentAthleteDisplayed:
		if f.decision.Reset() {
			f.publish(events.DecisionReset{Header: f.header()})
		}
		return f.transition(fop.StateCurrentAthleteDisplayed)
	}
	return f.invalid(c, "no decision to reset")
}

// recordDecision stores the shown decision on the attempt and clears the lights.
func (f *FieldOfPlay) recordDecision(ctx context.Context) error {
	snap := f.decision.Snapshot()
	if snap.Phase != decision.PhaseComplete || f.attempt == nil {
		return errors.New("no complete decision to record")
	}
	good := *snap.Good
	at := f.clock.Now()
	if err := f.repo.RecordLift(ctx, f.attempt.athleteID, f.attempt.slot, good, at); err != nil {
		return fmt.Errorf("record lift: %w", err)
	}
	f.lastLift = &liftRef{athleteID: f.attempt.athleteID, slot: f.attempt.slot, good: good}
	f.decision.Reset()
	f.decisionGen++
	f.cancelTimer(expiryDecision)
	f.publish(events.DecisionReset{Header: f.header()})
	return f.reload(ctx)
}

// advanceAttempt makes the head of the lifting order the displayed attempt, keeping
// the clock when it is the same attempt.
func (f *FieldOfPlay) advanceAttempt() {
	if f.lifting.Current == nil {
		f.attempt = nil
		f.allotted = 0
		f.athleteClock.Reset(nil)
		return
	}
	f.displayAthlete(*f.lifting.Current)
}

func (f *FieldOfPlay) resetAfterDecision(ctx context.Context) error {
	if err := f.recordDecision(ctx); err != nil {
		return err
	}
	f.lifting = f.order.Compute(f.group.Athletes)
	f.advanceAttempt()
	if f.lifting.Current == nil {
		return f.groupDone()
	}
	if err := f.transition(fop.StateCurrentAthleteDisplayed); err != nil {
		return err
	}
	f.publishOrder()
	return nil
}

// groupDone enters the indefinite GROUP_DONE break.
func (f *FieldOfPlay) groupDone() error {
	f.cancelTimer(expiryAthlete)
	f.breakType = fop.BreakGroupDone
	f.breakClock.Reset(nil)
	f.breakClock.Start()
	if err := f.transition(fop.StateBreak); err != nil {
		return err
	}
	f.publish(events.GroupDone{Header: f.header(), Group: f.group.Name})
	f.publish(events.BreakStarted{Header: f.header(), TimerInfo: f.breakInfo()})
	f.publishOrder()
	return nil
}

// displayAthlete loads the athlete clock for a's next attempt. Consecutive attempts
// by the same athlete get the longer allotment.
func (f *FieldOfPlay) displayAthlete(a models.Athlete) {
	slot := a.NextSlot()
	if f.attempt != nil && f.attempt.athleteID == a.ID && f.attempt.slot == slot {
		return
	}
	f.allotted = f.cfg.AttemptTime
	if f.lastLift != nil && f.lastLift.athleteID == a.ID {
		f.allotted = f.cfg.ConsecutiveAttemptTime
	}
	d := f.allotted
	f.cancelTimer(expiryAthlete)
	f.athleteClock.Reset(&d)
	f.attempt = &attemptRef{athleteID: a.ID, slot: slot}
}

func (f *FieldOfPlay) handleJuryDecision(ctx context.Context, c JuryDecision) error {
	switch f.currentState() {
	case fop.StateDecisionVisible:
		if err := f.decision.Reverse(c.Good); err != nil {
			return f.invalid(c, err.Error())
		}
		snap := f.decision.Snapshot()
		athlete, weight := f.attemptAthlete()
		f.publish(events.DecisionGiven{
			Header:      f.header(),
			D1:          snap.Lights[0],
			D2:          snap.Lights[1],
			D3:          snap.Lights[2],
			Good:        c.Good,
			TimeExpired: snap.TimeExpired,
			Reversal:    true,
			Athlete:     events.ViewOf(athlete),
		})
		f.publish(events.JuryNotification{
			Header:  f.header(),
			Type:    events.JuryReversal,
			Good:    c.Good,
			Athlete: events.ViewOf(athlete),
		})
		if c.Good && athlete != nil {
			f.notifyRecords(*athlete, weight, c.Good)
		}
		f.cancelTimer(expiryDecision)
		f.scheduleDecisionReset()
		return nil
	case fop.StateCurrentAthleteDisplayed, fop.StateTimeStopped, fop.StateBreak:
		if f.lastLift == nil || f.group == nil {
			return f.invalid(c, "no decision to reverse")
		}
		if f.decision.Phase() != decision.PhaseEmpty {
			return f.invalid(c, "referees are deciding the next attempt")
		}
		prev := *f.lastLift
		if err := f.repo.RecordLift(ctx, prev.athleteID, prev.slot, c.Good, f.clock.Now()); err != nil {
			return fmt.Errorf("amend lift: %w", err)
		}
		f.lastLift.good = c.Good
		if err := f.reload(ctx); err != nil {
			return err
		}
		var view *events.AthleteView
		if a, ok := f.group.Athlete(prev.athleteID); ok {
			view = events.ViewOf(&a)
		}
		f.publish(events.JuryNotification{
			Header:  f.header(),
			Type:    events.JuryReversal,
			Good:    c.Good,
			Athlete: view,
		})
		return f.refreshOrder()
	}
	return f.invalid(c, "no decision to reverse")
}

func (f *FieldOfPlay) handleChangeWeight(ctx context.Context, c ChangeWeight) error {
	if f.group == nil {
		return f.invalid(c, "no group selected")
	}
	a, ok := f.group.Athlete(c.AthleteID)
	if !ok {
		return fmt.Errorf("athlete %s: %w", c.AthleteID, competition.ErrNotFound)
	}
	slot := a.NextSlot()
	if slot < 0 {
		return f.violation(fmt.Errorf("%w: %s has no attempt left", competition.ErrRuleViolation, a.FullName()))
	}
	if f.attempt != nil && f.attempt.athleteID == a.ID && f.attempt.slot == slot && f.decision.Phase() == decision.PhaseComplete {
		return f.violation(fmt.Errorf("%w: %s attempt already decided", competition.ErrRuleViolation, a.FullName()))
	}
	if err := f.repo.ChangeWeight(ctx, c.AthleteID, slot, c.Weight); err != nil {
		if errors.Is(err, competition.ErrRuleViolation) {
			return f.violation(err)
		}
		return fmt.Errorf("change weight: %w", err)
	}
	if err := f.reload(ctx); err != nil {
		return err
	}
	return f.refreshOrder()
}

// violation tells the operator why a change was refused.
func (f *FieldOfPlay) violation(err error) error {
	f.publish(events.Notification{Header: f.header(), Level: events.LevelWarning, Message: err.Error()})
	return err
}

// refreshOrder recomputes the order after roster data changed. If the head of the
// order moved while no decision is under way, the new head is displayed.
func (f *FieldOfPlay) refreshOrder() error {
	f.lifting = f.order.Compute(f.group.Athletes)
	switch f.currentState() {
	case fop.StateCurrentAthleteDisplayed, fop.StateTimeStopped, fop.StateTimeRunning:
	default:
		f.publishOrder()
		return nil
	}
	if f.decision.Phase() != decision.PhaseEmpty {
		f.publishOrder()
		return nil
	}
	cur := f.lifting.Current
	if cur != nil && f.attempt != nil && f.attempt.athleteID == cur.ID && f.attempt.slot == cur.NextSlot() {
		f.publishOrder()
		return nil
	}

	if f.athleteClock.Running() {
		f.athleteClock.Pause()
		f.cancelTimer(expiryAthlete)
		f.publish(events.StopTime{Header: f.header(), TimerInfo: f.athleteInfo()})
	}
	f.advanceAttempt()
	if cur == nil {
		return f.groupDone()
	}
	if err := f.transition(fop.StateCurrentAthleteDisplayed); err != nil {
		return err
	}
	f.publishOrder()
	return nil
}

// reload refreshes the bound group from the repository.
func (f *FieldOfPlay) reload(ctx context.Context) error {
	if f.group == nil {
		return nil
	}
	g, err := f.repo.Group(ctx, f.group.Name)
	if err != nil {
		return fmt.Errorf("reload group %s: %w", f.group.Name, err)
	}
	f.group = g
	return nil
}

// attemptAthlete returns the athlete of the displayed attempt and the weight requested.
func (f *FieldOfPlay) attemptAthlete() (*models.Athlete, int) {
	if f.attempt == nil || f.group == nil {
		return nil, 0
	}
	a, ok := f.group.Athlete(f.attempt.athleteID)
	if !ok {
		return nil, 0
	}
	return &a, a.Attempts[f.attempt.slot].Requested()
}

// notifyRecords tells the jury that a good lift beats a record the athlete is eligible for.
func (f *FieldOfPlay) notifyRecords(a models.Athlete, weight int, good bool) {
	eligible := f.records.Eligible(a.Gender, a.Age(f.clock.Now().Year()), a.BodyWeight)
	if len(eligible) == 0 {
		return
	}
	sn, cj, total := competition.Requests(a, f.attempt.slot, weight)
	challenged := f.records.Challenged(eligible, sn, cj, total)
	if len(challenged) == 0 {
		return
	}
	log.Info().
		Str("platform", f.platform).
		Str("athlete", a.FullName()).
		Int("weight", weight).
		Int("records", len(challenged)).
		Msg("record attempt")
	f.publish(events.JuryNotification{
		Header:    f.header(),
		Type:      events.JuryNewRecord,
		NewRecord: true,
		Records:   challenged,
		Good:      good,
		Athlete:   events.ViewOf(&a),
	})
}

func (f *FieldOfPlay) publishOrder() {
	f.publish(events.LiftingOrderUpdated{
		Header:       f.header(),
		State:        f.currentState(),
		BreakType:    f.breakType,
		Current:      events.ViewOf(f.lifting.Current),
		Next:         events.ViewOf(f.lifting.Next),
		Previous:     events.ViewOf(f.lifting.Previous),
		DisplayOrder: events.Views(f.lifting.DisplayOrder),
		Leaders:      f.leaders(),
		TimeAllowed:  f.timeAllowed().Milliseconds(),
	})
}

func (f *FieldOfPlay) athleteInfo() events.TimerInfo {
	return events.TimerInfo{Clock: clockOf(f.athleteClock, f.clock.Now())}
}

func (f *FieldOfPlay) breakInfo() events.TimerInfo {
	return events.TimerInfo{
		Clock:     clockOf(f.breakClock, f.clock.Now()),
		Break:     true,
		BreakType: f.breakType,
	}
}
