// Package events defines the UI events a field of play broadcasts. Every variant is
// self-contained: a subscriber never has to query the field of play to render it.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/models"
)

// Kind names an event variant on the wire.
type Kind string

const (
	KindBreakStarted        Kind = "BreakStarted"
	KindBreakPaused         Kind = "BreakPaused"
	KindBreakDone           Kind = "BreakDone"
	KindStartTime           Kind = "StartTime"
	KindStopTime            Kind = "StopTime"
	KindSetTime             Kind = "SetTime"
	KindDecisionGiven       Kind = "DecisionGiven"
	KindDownSignal          Kind = "DownSignal"
	KindDecisionReset       Kind = "DecisionReset"
	KindLiftingOrderUpdated Kind = "LiftingOrderUpdated"
	KindCeremonyStarted     Kind = "CeremonyStarted"
	KindCeremonyDone        Kind = "CeremonyDone"
	KindGroupSwitched       Kind = "GroupSwitched"
	KindGroupDone           Kind = "GroupDone"
	KindJuryNotification    Kind = "JuryNotification"
	KindNotification        Kind = "Notification"
)

// Event is the closed set of UI events. Dispatch with a type switch.
type Event interface {
	Kind() Kind
	Head() Header
	isEvent()
}

// Header is common to every event.
type Header struct {
	ID       uuid.UUID `json:"id"`
	Platform string    `json:"platform"`
	At       time.Time `json:"at"`
}

func NewHeader(platform string, at time.Time) Header {
	return Header{ID: uuid.New(), Platform: platform, At: at}
}

func (h Header) Head() Header { return h }

// Clock describes a timer to displays. Millis is nil for an indefinite timer.
// Displays count down to EndsAt themselves.
type Clock struct {
	Millis  *int64     `json:"millis"`
	EndsAt  *time.Time `json:"ends_at,omitempty"`
	Running bool       `json:"running"`
}

// Indefinite reports whether the clock has no remaining time to show.
func (c Clock) Indefinite() bool { return c.Millis == nil }

// TimerInfo is carried by every timer event so the clock can be drawn in context.
type TimerInfo struct {
	Clock     Clock         `json:"clock"`
	Break     bool          `json:"break"`
	BreakType fop.BreakType `json:"break_type,omitempty"`
}

// AthleteView is the flattened athlete a display needs.
type AthleteView struct {
	ID            uuid.UUID                `json:"id"`
	FullName      string                   `json:"full_name"`
	Team          string                   `json:"team"`
	Category      string                   `json:"category"`
	StartNumber   int                      `json:"start_number"`
	Lift          models.LiftType          `json:"lift"`
	AttemptNumber int                      `json:"attempt_number"`
	Weight        int                      `json:"weight"`
	AttemptsDone  int                      `json:"attempts_done"`
	Results       [models.AttemptSlots]int `json:"results"`
	BestSnatch    int                      `json:"best_snatch"`
	BestCleanJerk int                      `json:"best_clean_jerk"`
	Total         int                      `json:"total"`
}

func NewAthleteView(a models.Athlete) AthleteView {
	v := AthleteView{
		ID:            a.ID,
		FullName:      a.FullName(),
		Team:          a.Team,
		Category:      a.Category,
		StartNumber:   a.StartNumber,
		Lift:          a.CurrentLift(),
		AttemptNumber: a.AttemptNumber(),
		Weight:        a.NextRequestedWeight(),
		AttemptsDone:  a.AttemptsDone(),
		BestSnatch:    a.BestSnatch(),
		BestCleanJerk: a.BestCleanJerk(),
		Total:         a.Total(),
	}
	for i, att := range a.Attempts {
		v.Results[i] = att.ActualLift
	}
	return v
}

// ViewOf returns nil for a nil athlete.
func ViewOf(a *models.Athlete) *AthleteView {
	if a == nil {
		return nil
	}
	v := NewAthleteView(*a)
	return &v
}

func Views(athletes []models.Athlete) []AthleteView {
	out := make([]AthleteView, 0, len(athletes))
	for _, a := range athletes {
		out = append(out, NewAthleteView(a))
	}
	return out
}

type BreakStarted struct {
	Header
	TimerInfo
	Ceremony fop.CeremonyType `json:"ceremony,omitempty"`
}

type BreakPaused struct {
	Header
	TimerInfo
}

type BreakDone struct {
	Header
	BreakType fop.BreakType `json:"break_type"`
}

type StartTime struct {
	Header
	TimerInfo
}

type StopTime struct {
	Header
	TimerInfo
}

type SetTime struct {
	Header
	TimerInfo
}

// DecisionGiven carries the three referee lights. A nil light was not given,
// which is the case for every light when the clock ran out.
type DecisionGiven struct {
	Header
	D1          *bool        `json:"d1"`
	D2          *bool        `json:"d2"`
	D3          *bool        `json:"d3"`
	Good        bool         `json:"good"`
	TimeExpired bool         `json:"time_expired"`
	Reversal    bool         `json:"reversal"`
	Athlete     *AthleteView `json:"athlete,omitempty"`
}

type DownSignal struct {
	Header
}

type DecisionReset struct {
	Header
}

type LiftingOrderUpdated struct {
	Header
	State        fop.State     `json:"state"`
	BreakType    fop.BreakType `json:"break_type,omitempty"`
	Current      *AthleteView  `json:"current,omitempty"`
	Next         *AthleteView  `json:"next,omitempty"`
	Previous     *AthleteView  `json:"previous,omitempty"`
	DisplayOrder []AthleteView `json:"display_order"`
	Leaders      []AthleteView `json:"leaders"`
	TimeAllowed  int64         `json:"time_allowed_ms"`
}

type CeremonyStarted struct {
	Header
	Ceremony fop.CeremonyType `json:"ceremony"`
}

type CeremonyDone struct {
	Header
	Ceremony fop.CeremonyType `json:"ceremony"`
}

// GroupSwitched with an empty Group means the platform was released.
type GroupSwitched struct {
	Header
	Group       string `json:"group"`
	Description string `json:"description,omitempty"`
}

type GroupDone struct {
	Header
	Group string `json:"group"`
}

// JuryKind tells what the jury is being notified about.
type JuryKind string

const (
	JuryNewRecord JuryKind = "NEW_RECORD"
	JuryReversal  JuryKind = "REVERSAL"
)

type JuryNotification struct {
	Header
	Type      JuryKind        `json:"type"`
	NewRecord bool            `json:"new_record"`
	Records   []models.Record `json:"records,omitempty"`
	Good      bool            `json:"good"`
	Athlete   *AthleteView    `json:"athlete,omitempty"`
}

// Level of an operator notification.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
)

// Notification surfaces a rule violation or other message to the operator.
type Notification struct {
	Header
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (BreakStarted) Kind() Kind        { return KindBreakStarted }
func (BreakPaused) Kind() Kind         { return KindBreakPaused }
func (BreakDone) Kind() Kind           { return KindBreakDone }
func (StartTime) Kind() Kind           { return KindStartTime }
func (StopTime) Kind() Kind            { return KindStopTime }
func (SetTime) Kind() Kind             { return KindSetTime }
func (DecisionGiven) Kind() Kind       { return KindDecisionGiven }
func (DownSignal) Kind() Kind          { return KindDownSignal }
func (DecisionReset) Kind() Kind       { return KindDecisionReset }
func (LiftingOrderUpdated) Kind() Kind { return KindLiftingOrderUpdated }
func (CeremonyStarted) Kind() Kind     { return KindCeremonyStarted }
func (CeremonyDone) Kind() Kind        { return KindCeremonyDone }
func (GroupSwitched) Kind() Kind       { return KindGroupSwitched }
func (GroupDone) Kind() Kind           { return KindGroupDone }
func (JuryNotification) Kind() Kind    { return KindJuryNotification }
func (Notification) Kind() Kind        { return KindNotification }

func (BreakStarted) isEvent()        {}
func (BreakPaused) isEvent()         {}
func (BreakDone) isEvent()           {}
func (StartTime) isEvent()           {}
func (StopTime) isEvent()            {}
func (SetTime) isEvent()             {}
func (DecisionGiven) isEvent()       {}
func (DownSignal) isEvent()          {}
func (DecisionReset) isEvent()       {}
func (LiftingOrderUpdated) isEvent() {}
func (CeremonyStarted) isEvent()     {}
func (CeremonyDone) isEvent()        {}
func (GroupSwitched) isEvent()       {}
func (GroupDone) isEvent()           {}
func (JuryNotification) isEvent()    {}
func (Notification) isEvent()        {}

// IsTimer reports events that go to the remote timer endpoint.
func IsTimer(e Event) bool {
	switch e.(type) {
	case StartTime, StopTime, SetTime, BreakStarted, BreakPaused, BreakDone:
		return true
	}
	return false
}

// IsDecision reports events that go to the remote decision endpoint.
func IsDecision(e Event) bool {
	switch e.(type) {
	case DecisionGiven, DownSignal, DecisionReset:
		return true
	}
	return false
}

// Timer returns the timer info of a timer event.
func Timer(e Event) (TimerInfo, bool) {
	switch ev := e.(type) {
	case StartTime:
		return ev.TimerInfo, true
	case StopTime:
		return ev.TimerInfo, true
	case SetTime:
		return ev.TimerInfo, true
	case BreakStarted:
		return ev.TimerInfo, true
	case BreakPaused:
		return ev.TimerInfo, true
	case BreakDone:
		return TimerInfo{Break: true, BreakType: ev.BreakType}, true
	}
	return TimerInfo{}, false
}
