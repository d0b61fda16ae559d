package competition

import (
	"sort"
	"time"

	"github.com/mcdev12/fieldofplay/go/internal/models"
)

// LiftingOrder is the result of ordering a group for the next attempt.
// Current, Next and Previous are nil when there is no such athlete.
type LiftingOrder struct {
	Current      *models.Athlete
	Next         *models.Athlete
	Previous     *models.Athlete
	DisplayOrder []models.Athlete
}

// LiftingOrderProvider computes the lifting order from a roster. It must be a pure
// function of the athletes and their attempt history.
type LiftingOrderProvider interface {
	Compute(athletes []models.Athlete) LiftingOrder
}

// IWFLiftingOrder orders athletes by the usual competition rules: all snatches before
// any clean and jerk, then requested weight, attempt number, who lifted earlier and
// finally start number.
type IWFLiftingOrder struct{}

func (IWFLiftingOrder) Compute(athletes []models.Athlete) LiftingOrder {
	var remaining, finished []models.Athlete
	for _, a := range athletes {
		if a.Finished() {
			finished = append(finished, a)
		} else {
			remaining = append(remaining, a)
		}
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return liftsBefore(remaining[i], remaining[j])
	})
	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].StartNumber < finished[j].StartNumber
	})

	order := LiftingOrder{
		DisplayOrder: append(append([]models.Athlete{}, remaining...), finished...),
	}
	if len(remaining) > 0 {
		c := remaining[0]
		order.Current = &c
	}
	if len(remaining) > 1 {
		n := remaining[1]
		order.Next = &n
	}
	order.Previous = previousLifter(athletes)
	return order
}

func liftsBefore(a, b models.Athlete) bool {
	sa, sb := a.NextSlot(), b.NextSlot()
	phaseA, phaseB := sa/models.AttemptsPerLift, sb/models.AttemptsPerLift
	if phaseA != phaseB {
		return phaseA < phaseB
	}
	if wa, wb := a.NextRequestedWeight(), b.NextRequestedWeight(); wa != wb {
		return wa < wb
	}
	if na, nb := a.AttemptNumber(), b.AttemptNumber(); na != nb {
		return na < nb
	}
	ta, tb := a.PreviousLiftTime(), b.PreviousLiftTime()
	switch {
	case ta != nil && tb != nil && !ta.Equal(*tb):
		return ta.Before(*tb)
	case ta != nil && tb == nil:
		return true
	case ta == nil && tb != nil:
		return false
	}
	if a.StartNumber != b.StartNumber {
		return a.StartNumber < b.StartNumber
	}
	return a.LotNumber < b.LotNumber
}

func previousLifter(athletes []models.Athlete) *models.Athlete {
	var (
		prev   *models.Athlete
		latest time.Time
	)
	for i := range athletes {
		t := athletes[i].PreviousLiftTime()
		if t == nil {
			continue
		}
		if prev == nil || t.After(latest) {
			p := athletes[i]
			prev = &p
			latest = *t
		}
	}
	return prev
}
