package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
)

// Command is the closed set of inputs a field of play accepts.
type Command interface {
	Name() string
	isCommand()
}

// SwitchGroup binds the platform to a group. An empty group releases the platform.
type SwitchGroup struct{ Group string }

// ReleasePlatform unbinds the group and returns to INACTIVE.
type ReleasePlatform struct{}

// StartBreak pauses lifting. Duration only applies to countdown breaks; nil means
// the break lasts until EndBreak.
type StartBreak struct {
	BreakType fop.BreakType
	Duration  *time.Duration
	Ceremony  fop.CeremonyType
}

type EndBreak struct{}

type StartCeremony struct{ Ceremony fop.CeremonyType }

type EndCeremony struct{ Ceremony fop.CeremonyType }

// StartTime starts the athlete clock, or the break clock during a break.
type StartTime struct{}

// StopTime pauses the athlete clock, or the break clock during a break.
type StopTime struct{}

type SetTime struct{ Remaining time.Duration }

// RecordAttempt marks that the athlete has started the lift; the clock stops.
type RecordAttempt struct{}

type RefereeDecision struct {
	Referee int
	Good    bool
}

type ResetDecision struct{}

// JuryDecision overturns the last decision, before or after it was reset.
type JuryDecision struct{ Good bool }

// ChangeWeight changes the requested weight of an athlete's next attempt.
type ChangeWeight struct {
	AthleteID uuid.UUID
	Weight    int
}

// AthleteDataChanged tells the field of play that the roster was edited elsewhere.
type AthleteDataChanged struct{}

// Timer-driven commands. They carry the generation that scheduled them and are
// dropped when it is stale.
type (
	timeExpired  struct{ generation uint64 }
	breakExpired struct{ generation uint64 }
	decisionDue  struct{ generation uint64 }
)

func (SwitchGroup) Name() string        { return "SwitchGroup" }
func (ReleasePlatform) Name() string    { return "ReleasePlatform" }
func (StartBreak) Name() string         { return "StartBreak" }
func (EndBreak) Name() string           { return "EndBreak" }
func (StartCeremony) Name() string      { return "StartCeremony" }
func (EndCeremony) Name() string        { return "EndCeremony" }
func (StartTime) Name() string          { return "StartTime" }
func (StopTime) Name() string           { return "StopTime" }
func (SetTime) Name() string            { return "SetTime" }
func (RecordAttempt) Name() string      { return "RecordAttempt" }
func (RefereeDecision) Name() string    { return "RefereeDecision" }
func (ResetDecision) Name() string      { return "ResetDecision" }
func (JuryDecision) Name() string       { return "JuryDecision" }
func (ChangeWeight) Name() string       { return "ChangeWeight" }
func (AthleteDataChanged) Name() string { return "AthleteDataChanged" }
func (timeExpired) Name() string        { return "timeExpired" }
func (breakExpired) Name() string       { return "breakExpired" }
func (decisionDue) Name() string        { return "decisionDue" }

func (SwitchGroup) isCommand()        {}
func (ReleasePlatform) isCommand()    {}
func (StartBreak) isCommand()         {}
func (EndBreak) isCommand()           {}
func (StartCeremony) isCommand()      {}
func (EndCeremony) isCommand()        {}
func (StartTime) isCommand()          {}
func (StopTime) isCommand()           {}
func (SetTime) isCommand()            {}
func (RecordAttempt) isCommand()      {}
func (RefereeDecision) isCommand()    {}
func (ResetDecision) isCommand()      {}
func (JuryDecision) isCommand()       {}
func (ChangeWeight) isCommand()       {}
func (AthleteDataChanged) isCommand() {}
func (timeExpired) isCommand()        {}
func (breakExpired) isCommand()       {}
func (decisionDue) isCommand()        {}

// ErrBadCommand is returned when a command cannot be decoded.
var ErrBadCommand = errors.New("bad command")

// DecodeCommand builds a command from its name and loosely typed arguments, as they
// arrive from JSON or a protobuf Struct. Numbers may be float64 or int.
func DecodeCommand(name string, args map[string]any) (Command, error) {
	a := argReader{args: args}
	var cmd Command
	switch name {
	case "SwitchGroup":
		cmd = SwitchGroup{Group: a.str("group")}
	case "ReleasePlatform":
		cmd = ReleasePlatform{}
	case "StartBreak":
		c := StartBreak{
			BreakType: fop.BreakType(a.str("break_type")),
			Ceremony:  fop.CeremonyType(a.str("ceremony")),
		}
		if ms, ok := a.num("duration_ms"); ok {
			d := time.Duration(ms) * time.Millisecond
			c.Duration = &d
		}
		cmd = c
	case "EndBreak":
		cmd = EndBreak{}
	case "StartCeremony":
		cmd = StartCeremony{Ceremony: fop.CeremonyType(a.str("ceremony"))}
	case "EndCeremony":
		cmd = EndCeremony{Ceremony: fop.CeremonyType(a.str("ceremony"))}
	case "StartTime":
		cmd = StartTime{}
	case "StopTime":
		cmd = StopTime{}
	case "SetTime":
		ms, ok := a.num("remaining_ms")
		if !ok {
			a.fail("remaining_ms is required")
		}
		cmd = SetTime{Remaining: time.Duration(ms) * time.Millisecond}
	case "RecordAttempt":
		cmd = RecordAttempt{}
	case "RefereeDecision":
		ref, ok := a.num("referee")
		if !ok {
			a.fail("referee is required")
		}
		good, ok := a.boolean("good")
		if !ok {
			a.fail("good is required")
		}
		cmd = RefereeDecision{Referee: int(ref), Good: good}
	case "ResetDecision":
		cmd = ResetDecision{}
	case "JuryDecision":
		good, ok := a.boolean("good")
		if !ok {
			a.fail("good is required")
		}
		cmd = JuryDecision{Good: good}
	case "ChangeWeight":
		id, err := uuid.Parse(a.str("athlete_id"))
		if err != nil {
			a.fail("athlete_id: " + err.Error())
		}
		w, ok := a.num("weight")
		if !ok {
			a.fail("weight is required")
		}
		cmd = ChangeWeight{AthleteID: id, Weight: int(w)}
	case "AthleteDataChanged":
		cmd = AthleteDataChanged{}
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrBadCommand, name)
	}
	if a.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadCommand, name, a.err)
	}
	return cmd, nil
}

type argReader struct {
	args map[string]any
	err  error
}

func (a *argReader) fail(msg string) {
	if a.err == nil {
		a.err = errors.New(msg)
	}
}

func (a *argReader) str(key string) string {
	v, ok := a.args[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.fail(key + " must be a string")
	}
	return s
}

func (a *argReader) num(key string) (int64, bool) {
	v, ok := a.args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	a.fail(key + " must be a number")
	return 0, false
}

func (a *argReader) boolean(key string) (bool, bool) {
	v, ok := a.args[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	if !ok {
		a.fail(key + " must be a boolean")
		return false, false
	}
	return b, true
}
