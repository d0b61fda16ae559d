package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/robbyt/go-fsm"
)

// transitions is the field-of-play state graph. Any state may fall back to INACTIVE
// (platform released or fault) and to BREAK (break requested).
var transitions = map[string][]string{
	string(fop.StateInactive): {
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
	string(fop.StateBreak): {
		string(fop.StateCurrentAthleteDisplayed),
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
	string(fop.StateCurrentAthleteDisplayed): {
		string(fop.StateTimeRunning),
		string(fop.StateDecisionVisible),
		string(fop.StateCurrentAthleteDisplayed),
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
	string(fop.StateTimeRunning): {
		string(fop.StateTimeStopped),
		string(fop.StateDecisionVisible),
		string(fop.StateCurrentAthleteDisplayed),
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
	string(fop.StateTimeStopped): {
		string(fop.StateTimeRunning),
		string(fop.StateDecisionVisible),
		string(fop.StateCurrentAthleteDisplayed),
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
	string(fop.StateDecisionVisible): {
		string(fop.StateCurrentAthleteDisplayed),
		string(fop.StateDecisionVisible),
		string(fop.StateBreak),
		string(fop.StateInactive),
	},
}

func newMachine() (*fsm.Machine, error) {
	m, err := fsm.New(slog.DiscardHandler, string(fop.StateInactive), transitions)
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}
	return m, nil
}

// CanTransition reports whether the state graph has an edge from one state to another.
func CanTransition(from, to fop.State) bool {
	for _, s := range transitions[string(from)] {
		if s == string(to) {
			return true
		}
	}
	return false
}
