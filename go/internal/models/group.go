package models

import "github.com/google/uuid"

// Group is the set of athletes lifting together on one platform.
type Group struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Platform    string    `json:"platform,omitempty" yaml:"platform,omitempty"`
	Athletes    []Athlete `json:"athletes" yaml:"athletes"`
}

// Clone returns a deep copy so the caller can hold it across commands.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	c.Athletes = make([]Athlete, len(g.Athletes))
	copy(c.Athletes, g.Athletes)
	return &c
}

// Athlete looks an athlete up by id.
func (g *Group) Athlete(id uuid.UUID) (Athlete, bool) {
	if g == nil {
		return Athlete{}, false
	}
	for _, a := range g.Athletes {
		if a.ID == id {
			return a, true
		}
	}
	return Athlete{}, false
}

// LiftsDone counts attempts taken by the whole group.
func (g *Group) LiftsDone() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, a := range g.Athletes {
		n += a.AttemptsDone()
	}
	return n
}
