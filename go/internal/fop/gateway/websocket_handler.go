package gateway

import (
	"errors"
	"net/http"

	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades display connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateProvider     StateProvider
}

func NewWebSocketHandler(cm *ConnectionManager, provider StateProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateProvider:     provider,
	}
}

// HandleFOPConnection handles /ws/fop?platform=A. The display first receives the
// current state, then every event of the platform.
func (h *WebSocketHandler) HandleFOPConnection(w http.ResponseWriter, r *http.Request) {
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
		http.Error(w, "failed to get platform state", http.StatusInternalServerError)
		return
	}
	sync, err := StateSyncEnvelope(s)
	if err != nil {
		log.Error().Err(err).Str("platform", platform).Msg("failed to build state sync")
		http.Error(w, "failed to get platform state", http.StatusInternalServerError)
		return
	}

	// the upgrader has already answered the client when this fails
	if err := h.connectionManager.UpgradeConnection(w, r, platform, sync); err != nil {
		log.Error().
			Err(err).
			Str("platform", platform).
			Msg("failed to upgrade websocket connection")
	}
}

// HandleConnectionStats handles /ws/stats.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.connectionManager.GetConnectionStats())
}

func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/fop", h.HandleFOPConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
