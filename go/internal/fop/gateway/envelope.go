package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
)

// TypeStateSync is the type of the first message a display receives after connecting.
const TypeStateSync = "StateSync"

// Envelope is the JSON message pushed to displays. Data holds the event or, for a state
// sync, the platform state.
type Envelope struct {
	ID        string          `json:"id"`
	Platform  string          `json:"platform"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventEnvelope wraps a field of play event.
func EventEnvelope(ev events.Event) (*Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	h := ev.Head()
	return &Envelope{
		ID:        h.ID.String(),
		Platform:  h.Platform,
		Type:      string(ev.Kind()),
		Timestamp: h.At,
		Data:      data,
	}, nil
}

// StateSyncEnvelope wraps the current state of a platform.
func StateSyncEnvelope(s *orchestrator.Snapshot) (*Envelope, error) {
	data, err := json.Marshal(NewStateView(s))
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Platform:  s.Platform,
		Type:      TypeStateSync,
		Timestamp: s.UpdatedAt,
		Data:      data,
	}, nil
}
