// Package fop holds the vocabulary shared by the field-of-play packages.
package fop

import (
	"strings"
	"unicode"
)

// State of one platform. Exactly one value per field of play at any time.
type State string

const (
	StateInactive                State = "INACTIVE"
	StateBreak                   State = "BREAK"
	StateCurrentAthleteDisplayed State = "CURRENT_ATHLETE_DISPLAYED"
	StateTimeRunning             State = "TIME_RUNNING"
	StateTimeStopped             State = "TIME_STOPPED"
	StateDecisionVisible         State = "DECISION_VISIBLE"
)

// States lists every state, in declaration order.
var States = []State{
	StateInactive,
	StateBreak,
	StateCurrentAthleteDisplayed,
	StateTimeRunning,
	StateTimeStopped,
	StateDecisionVisible,
}

// BreakType says why lifting is paused. Behaviour is driven by its traits.
type BreakType string

const (
	BreakNone               BreakType = ""
	BreakBeforeIntroduction BreakType = "BEFORE_INTRODUCTION"
	BreakFirstSnatch        BreakType = "FIRST_SNATCH"
	BreakFirstCJ            BreakType = "FIRST_CJ"
	BreakTechnical          BreakType = "TECHNICAL"
	BreakJury               BreakType = "JURY"
	BreakMarshal            BreakType = "MARSHAL"
	BreakGroupDone          BreakType = "GROUP_DONE"
)

type breakTraits struct {
	ceremony     bool
	countdown    bool
	interruption bool
}

var traits = map[BreakType]breakTraits{
	BreakBeforeIntroduction: {countdown: true},
	BreakFirstSnatch:        {countdown: true},
	BreakFirstCJ:            {countdown: true},
	BreakTechnical:          {interruption: true},
	BreakJury:               {interruption: true},
	BreakMarshal:            {interruption: true},
	BreakGroupDone:          {ceremony: true},
}

// Valid reports whether b is a known break type.
func (b BreakType) Valid() bool {
	_, ok := traits[b]
	return ok
}

// Ceremony breaks are presentations; the clock is hidden.
func (b BreakType) Ceremony() bool { return traits[b].ceremony }

// Countdown breaks are planned pauses that may run a break clock.
func (b BreakType) Countdown() bool { return traits[b].countdown }

// Interruption breaks are unplanned stoppages with no clock.
func (b BreakType) Interruption() bool { return traits[b].interruption }

// CeremonyType is orthogonal to breaks: a ceremony can happen during any break.
type CeremonyType string

const (
	CeremonyNone                  CeremonyType = ""
	CeremonyIntroduction          CeremonyType = "INTRODUCTION"
	CeremonyMedals                CeremonyType = "MEDALS"
	CeremonyOfficialsIntroduction CeremonyType = "OFFICIALS_INTRODUCTION"
)

func (c CeremonyType) Valid() bool {
	switch c {
	case CeremonyIntroduction, CeremonyMedals, CeremonyOfficialsIntroduction:
		return true
	}
	return false
}

// SubjectToken turns a platform name into a single NATS subject token.
func SubjectToken(platform string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), r == '.', r == '*', r == '>':
			return '_'
		}
		return r
	}, platform)
}
