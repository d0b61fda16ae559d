package competition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("not found")

// Repository is the persistence collaborator of a field of play. Groups are returned
// as copies; callers never hold them beyond one command.
type Repository interface {
	Group(ctx context.Context, name string) (*models.Group, error)
	Groups(ctx context.Context) ([]string, error)
	// RecordLift stores the outcome of the requested weight on a slot. Calling it again
	// on a taken slot amends the outcome, keeping the original lift time.
	RecordLift(ctx context.Context, athleteID uuid.UUID, slot int, good bool, at time.Time) error
	ChangeWeight(ctx context.Context, athleteID uuid.UUID, slot, weight int) error
}

// ApplyLift updates an athlete in place for RecordLift.
func ApplyLift(a *models.Athlete, slot int, good bool, at time.Time) error {
	if slot < 0 || slot >= models.AttemptSlots {
		return fmt.Errorf("slot %d out of range", slot)
	}
	att := &a.Attempts[slot]
	weight := att.Requested()
	if att.Done() {
		weight = att.ActualLift
		if weight < 0 {
			weight = -weight
		}
	} else {
		t := at
		att.LiftTime = &t
	}
	if weight <= 0 {
		return fmt.Errorf("slot %d has no requested weight", slot)
	}
	if good {
		att.ActualLift = weight
	} else {
		att.ActualLift = -weight
	}

	if next := slot + 1; next%models.AttemptsPerLift != 0 && a.Attempts[next].Declaration == 0 {
		a.Attempts[next].Declaration = NextAutomaticWeight(att.ActualLift)
	}
	return nil
}

// MemoryRepository keeps groups in memory. It backs single-machine setups and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	groups map[string]*models.Group
}

func NewMemoryRepository(groups ...models.Group) *MemoryRepository {
	r := &MemoryRepository{groups: make(map[string]*models.Group)}
	for i := range groups {
		r.groups[groups[i].Name] = groups[i].Clone()
	}
	return r
}

type rosterFile struct {
	Groups []models.Group `yaml:"groups"`
}

// LoadRoster reads groups from a YAML roster file. Missing athlete ids are generated.
func LoadRoster(path string) ([]models.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	for gi := range f.Groups {
		for ai := range f.Groups[gi].Athletes {
			if f.Groups[gi].Athletes[ai].ID == uuid.Nil {
				f.Groups[gi].Athletes[ai].ID = uuid.New()
			}
		}
	}
	return f.Groups, nil
}

func (r *MemoryRepository) Group(_ context.Context, name string) (*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	return g.Clone(), nil
}

func (r *MemoryRepository) Groups(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryRepository) RecordLift(_ context.Context, athleteID uuid.UUID, slot int, good bool, at time.Time) error {
	return r.update(athleteID, func(a *models.Athlete) error {
		return ApplyLift(a, slot, good, at)
	})
}

func (r *MemoryRepository) ChangeWeight(_ context.Context, athleteID uuid.UUID, slot, weight int) error {
	return r.update(athleteID, func(a *models.Athlete) error {
		return ApplyChange(a, slot, weight)
	})
}

// update applies fn to a copy and only stores it when fn succeeds.
func (r *MemoryRepository) update(athleteID uuid.UUID, fn func(a *models.Athlete) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		for i := range g.Athletes {
			if g.Athletes[i].ID != athleteID {
				continue
			}
			a := g.Athletes[i]
			if err := fn(&a); err != nil {
				return err
			}
			g.Athletes[i] = a
			return nil
		}
	}
	return fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
}
