package competition

import (
	"errors"
	"fmt"

	"github.com/mcdev12/fieldofplay/go/internal/models"
)

// ErrRuleViolation is returned when a weight change breaks the progression rules.
var ErrRuleViolation = errors.New("rule violation")

// ApplyChange records a weight change on an athlete's slot.
// Only the next attempt may change, at most twice, never below the current request,
// and after a good lift in the same lift the next weight must go up.
func ApplyChange(a *models.Athlete, slot, weight int) error {
	if slot < 0 || slot >= models.AttemptSlots {
		return fmt.Errorf("%w: slot %d out of range", ErrRuleViolation, slot)
	}
	if next := a.NextSlot(); next != slot {
		return fmt.Errorf("%w: slot %d is not the next attempt (%d)", ErrRuleViolation, slot, next)
	}
	att := &a.Attempts[slot]
	if weight < att.Requested() {
		return fmt.Errorf("%w: %dkg is below the requested %dkg", ErrRuleViolation, weight, att.Requested())
	}
	if prev := slot - 1; slot%models.AttemptsPerLift != 0 {
		if p := a.Attempts[prev]; p.Good() && weight <= p.ActualLift {
			return fmt.Errorf("%w: %dkg must exceed the previous good lift of %dkg", ErrRuleViolation, weight, p.ActualLift)
		}
	}

	switch {
	case att.Declaration == 0:
		att.Declaration = weight
	case att.Change1 == 0:
		att.Change1 = weight
	case att.Change2 == 0:
		att.Change2 = weight
	default:
		return fmt.Errorf("%w: no changes left on attempt %d", ErrRuleViolation, slot%models.AttemptsPerLift+1)
	}
	return nil
}

// NextAutomaticWeight is the declaration carried into the following slot after a lift:
// one kilo more after a good lift, the same weight after a miss.
func NextAutomaticWeight(lifted int) int {
	if lifted > 0 {
		return lifted + 1
	}
	return -lifted
}
