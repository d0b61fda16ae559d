package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender of an athlete as used by categories and records.
type Gender string

const (
	GenderFemale Gender = "F"
	GenderMale   Gender = "M"
)

// LiftType identifies the lift an attempt belongs to.
type LiftType string

const (
	LiftSnatch    LiftType = "SNATCH"
	LiftCleanJerk LiftType = "CLEAN_JERK"
	LiftTotal     LiftType = "TOTAL"
)

const (
	AttemptsPerLift = 3
	AttemptSlots    = 2 * AttemptsPerLift
)

// Attempt is one of the six attempt slots of an athlete.
// ActualLift is signed: positive is a good lift, negative a no lift, zero not attempted.
type Attempt struct {
	Declaration int        `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	Change1     int        `json:"change1,omitempty" yaml:"change1,omitempty"`
	Change2     int        `json:"change2,omitempty" yaml:"change2,omitempty"`
	ActualLift  int        `json:"actual_lift,omitempty" yaml:"actual_lift,omitempty"`
	LiftTime    *time.Time `json:"lift_time,omitempty" yaml:"lift_time,omitempty"`
}

// Requested returns the weight currently asked for on this slot.
func (a Attempt) Requested() int {
	switch {
	case a.Change2 > 0:
		return a.Change2
	case a.Change1 > 0:
		return a.Change1
	default:
		return a.Declaration
	}
}

// Done reports whether the attempt has been taken.
func (a Attempt) Done() bool {
	return a.ActualLift != 0
}

// Good reports whether the attempt was a good lift.
func (a Attempt) Good() bool {
	return a.ActualLift > 0
}

// Athlete is a competitor. Owned by the persistence layer; the field of play only
// reads it and derives attempt numbers and requested weights.
type Athlete struct {
	ID          uuid.UUID             `json:"id" yaml:"id"`
	FirstName   string                `json:"first_name" yaml:"first_name"`
	LastName    string                `json:"last_name" yaml:"last_name"`
	Team        string                `json:"team" yaml:"team"`
	Gender      Gender                `json:"gender" yaml:"gender"`
	Category    string                `json:"category" yaml:"category"`
	BodyWeight  float64               `json:"body_weight" yaml:"body_weight"`
	BirthYear   int                   `json:"birth_year" yaml:"birth_year"`
	LotNumber   int                   `json:"lot_number" yaml:"lot_number"`
	StartNumber int                   `json:"start_number" yaml:"start_number"`
	Attempts    [AttemptSlots]Attempt `json:"attempts" yaml:"attempts"`
}

// FullName is the display name, family name first.
func (a Athlete) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", strings.ToUpper(a.LastName), a.FirstName))
}

// NextSlot returns the index of the next attempt to take, or -1 when all six are done.
func (a Athlete) NextSlot() int {
	for i, att := range a.Attempts {
		if !att.Done() {
			return i
		}
	}
	return -1
}

// AttemptsDone counts the attempts already taken.
func (a Athlete) AttemptsDone() int {
	n := 0
	for _, att := range a.Attempts {
		if att.Done() {
			n++
		}
	}
	return n
}

// Finished reports whether the athlete has no attempts left.
func (a Athlete) Finished() bool {
	return a.NextSlot() < 0
}

// NextRequestedWeight is the weight requested for the next attempt, 0 when finished.
func (a Athlete) NextRequestedWeight() int {
	slot := a.NextSlot()
	if slot < 0 {
		return 0
	}
	return a.Attempts[slot].Requested()
}

// AttemptNumber is the 1-based attempt number within the current lift.
func (a Athlete) AttemptNumber() int {
	slot := a.NextSlot()
	if slot < 0 {
		return 0
	}
	return slot%AttemptsPerLift + 1
}

// CurrentLift is the lift of the next attempt.
func (a Athlete) CurrentLift() LiftType {
	return SlotLift(a.NextSlot())
}

// SlotLift maps a slot index to its lift.
func SlotLift(slot int) LiftType {
	if slot >= 0 && slot < AttemptsPerLift {
		return LiftSnatch
	}
	return LiftCleanJerk
}

func (a Athlete) best(from int) int {
	best := 0
	for _, att := range a.Attempts[from : from+AttemptsPerLift] {
		if att.ActualLift > best {
			best = att.ActualLift
		}
	}
	return best
}

// BestSnatch is the heaviest good snatch, 0 if none.
func (a Athlete) BestSnatch() int { return a.best(0) }

// BestCleanJerk is the heaviest good clean and jerk, 0 if none.
func (a Athlete) BestCleanJerk() int { return a.best(AttemptsPerLift) }

// Total is zero unless both lifts have a good attempt.
func (a Athlete) Total() int {
	sn, cj := a.BestSnatch(), a.BestCleanJerk()
	if sn == 0 || cj == 0 {
		return 0
	}
	return sn + cj
}

// PreviousLiftTime is when the last taken attempt was lifted.
func (a Athlete) PreviousLiftTime() *time.Time {
	var last *time.Time
	for _, att := range a.Attempts {
		if att.Done() && att.LiftTime != nil {
			if last == nil || att.LiftTime.After(*last) {
				last = att.LiftTime
			}
		}
	}
	return last
}

// Age at the given competition year.
func (a Athlete) Age(year int) int {
	if a.BirthYear == 0 {
		return 0
	}
	return year - a.BirthYear
}
