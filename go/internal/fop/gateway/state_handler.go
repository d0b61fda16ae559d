package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/decision"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/rs/zerolog/log"
)

// StateProvider is implemented by *orchestrator.Registry.
type StateProvider interface {
	Platforms() []string
	Snapshot(platform string) (*orchestrator.Snapshot, error)
}

// StateView is the JSON form of a platform snapshot.
type StateView struct {
	Platform         string               `json:"platform"`
	State            fop.State            `json:"state"`
	Group            string               `json:"group,omitempty"`
	GroupDescription string               `json:"group_description,omitempty"`
	BreakType        fop.BreakType        `json:"break_type,omitempty"`
	Ceremony         fop.CeremonyType     `json:"ceremony,omitempty"`
	Current          *events.AthleteView  `json:"current,omitempty"`
	Next             *events.AthleteView  `json:"next,omitempty"`
	Previous         *events.AthleteView  `json:"previous,omitempty"`
	DisplayOrder     []events.AthleteView `json:"display_order"`
	Leaders          []events.AthleteView `json:"leaders"`
	LiftsDone        int                  `json:"lifts_done"`
	TimeAllowedMs    int64                `json:"time_allowed_ms"`
	AthleteClock     events.Clock         `json:"athlete_clock"`
	BreakClock       events.Clock         `json:"break_clock"`
	Decision         DecisionView         `json:"decision"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type DecisionView struct {
	Phase   decision.Phase `json:"phase"`
	Lights  []*bool        `json:"lights"`
	Good    *bool          `json:"good,omitempty"`
	Visible bool           `json:"visible"`
}

// PlatformSummary is one entry of the platform list.
type PlatformSummary struct {
	Platform string        `json:"platform"`
	State    fop.State     `json:"state"`
	Group    string        `json:"group,omitempty"`
	Break    fop.BreakType `json:"break_type,omitempty"`
	Current  string        `json:"current,omitempty"`
}

func NewStateView(s *orchestrator.Snapshot) StateView {
	v := StateView{
		Platform:         s.Platform,
		State:            s.State,
		Group:            s.Group,
		GroupDescription: s.GroupDescription,
		BreakType:        s.BreakType,
		Ceremony:         s.Ceremony,
		Current:          s.Current,
		Next:             s.Next,
		Previous:         s.Previous,
		DisplayOrder:     s.DisplayOrder,
		Leaders:          s.Leaders,
		LiftsDone:        s.LiftsDone,
		TimeAllowedMs:    s.TimeAllowed.Milliseconds(),
		AthleteClock:     s.AthleteClock,
		BreakClock:       s.BreakClock,
		Decision: DecisionView{
			Phase:   s.Decision.Phase,
			Lights:  s.Decision.Lights[:],
			Good:    s.Decision.Good,
			Visible: s.Decision.Visible(),
		},
		UpdatedAt: s.UpdatedAt,
	}
	if v.DisplayOrder == nil {
		v.DisplayOrder = []events.AthleteView{}
	}
	if v.Leaders == nil {
		v.Leaders = []events.AthleteView{}
	}
	return v
}

// StateHandler serves the platform state over plain HTTP, for displays that need the
// state before their websocket is up.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetState handles GET /api/fops/state?platform=A
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		http.Error(w, "platform is required", http.StatusBadRequest)
		return
	}

	s, err := h.stateProvider.Snapshot(platform)
	if errors.Is(err, orchestrator.ErrUnknownPlatform) {
		http.Error(w, "unknown platform", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("platform", platform).Msg("failed to get platform state")
		http.Error(w, "Failed to get platform state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, NewStateView(s))
}

// HandleListPlatforms handles GET /api/fops
func (h *StateHandler) HandleListPlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	platforms := h.stateProvider.Platforms()
	out := make([]PlatformSummary, 0, len(platforms))
	for _, name := range platforms {
		s, err := h.stateProvider.Snapshot(name)
		if err != nil {
			log.Warn().Err(err).Str("platform", name).Msg("skipping platform without state")
			continue
		}
		summary := PlatformSummary{Platform: name, State: s.State, Group: s.Group, Break: s.BreakType}
		if s.Current != nil {
			summary.Current = s.Current.FullName
		}
		out = append(out, summary)
	}
	writeJSON(w, out)
}

func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/fops", h.HandleListPlatforms)
	mux.HandleFunc("/api/fops/state", h.HandleGetState)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
