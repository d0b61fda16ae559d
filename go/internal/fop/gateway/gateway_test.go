package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meetDay = time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T) *orchestrator.Registry {
	t.Helper()
	a := models.Athlete{
		ID: uuid.New(), FirstName: "Ana", LastName: "Lopez", Team: "MEX",
		Gender: models.GenderFemale, Category: "F59", BodyWeight: 58.2, StartNumber: 1, LotNumber: 1,
	}
	a.Attempts[0].Declaration = 80
	a.Attempts[models.AttemptsPerLift].Declaration = 100
	repo := competition.NewMemoryRepository(models.Group{Name: "A", Description: "Women 59kg A", Athletes: []models.Athlete{a}})

	f, err := orchestrator.NewFieldOfPlay(orchestrator.Params{
		Platform:   "A",
		Repository: repo,
		Clock:      clockwork.NewFakeClockAt(meetDay),
	})
	require.NoError(t, err)
	r, err := orchestrator.NewRegistry(f)
	require.NoError(t, err)
	return r
}

func startGateway(t *testing.T) (*orchestrator.Registry, *Service, *httptest.Server) {
	t.Helper()
	registry := newRegistry(t)
	svc := NewService(DefaultConfig(), registry, nil)
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { _ = registry.Run(ctx); done <- struct{}{} }()
	go func() { _ = svc.Start(ctx); done <- struct{}{} }()
	t.Cleanup(func() {
		cancel()
		<-done
		<-done
		srv.Close()
	})
	return registry, svc, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestDisplayReceivesStateThenEvents(t *testing.T) {
	registry, svc, srv := startGateway(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/fop?platform=A"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEnvelope(t, conn)
	assert.Equal(t, TypeStateSync, first.Type)
	assert.Equal(t, "A", first.Platform)
	var state StateView
	require.NoError(t, json.Unmarshal(first.Data, &state))
	assert.Equal(t, fop.StateInactive, state.State)
	assert.NotNil(t, state.DisplayOrder)

	require.Eventually(t, func() bool {
		return svc.Stats().TotalConnections == 1
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, registry.Do(ctx, "A", orchestrator.SwitchGroup{Group: "A"}))

	switched := readEnvelope(t, conn)
	assert.Equal(t, string(events.KindGroupSwitched), switched.Type)
	assert.Equal(t, meetDay, switched.Timestamp.UTC())
	var payload events.GroupSwitched
	require.NoError(t, json.Unmarshal(switched.Data, &payload))
	assert.Equal(t, "A", payload.Group)
	assert.Equal(t, "Women 59kg A", payload.Description)

	assert.Equal(t, string(events.KindBreakStarted), readEnvelope(t, conn).Type)
	assert.Equal(t, string(events.KindLiftingOrderUpdated), readEnvelope(t, conn).Type)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.Platforms["A"])
}

func TestUnknownPlatformIsRejected(t *testing.T) {
	_, _, srv := startGateway(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/fop?platform=Z"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/fop"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStateRoutes(t *testing.T) {
	registry, _, srv := startGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, registry.Do(ctx, "A", orchestrator.SwitchGroup{Group: "A"}))
	require.NoError(t, registry.Do(ctx, "A", orchestrator.EndBreak{}))

	resp, err := http.Get(srv.URL + "/api/fops")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []PlatformSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Platform)
	assert.Equal(t, fop.StateCurrentAthleteDisplayed, list[0].State)
	assert.Equal(t, "LOPEZ Ana", list[0].Current)

	resp2, err := http.Get(srv.URL + "/api/fops/state?platform=A")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var state StateView
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&state))
	assert.Equal(t, "A", state.Group)
	require.NotNil(t, state.Current)
	assert.Equal(t, 80, state.Current.Weight)
	assert.Equal(t, int64(60000), state.TimeAllowedMs)
	assert.Len(t, state.Decision.Lights, 3)
	assert.False(t, state.Decision.Visible)
}

func TestStateHandlerErrors(t *testing.T) {
	h := NewStateHandler(newRegistry(t))

	for _, tc := range []struct {
		name   string
		method string
		target string
		status int
	}{
		{"missing platform", http.MethodGet, "/api/fops/state", http.StatusBadRequest},
		{"unknown platform", http.MethodGet, "/api/fops/state?platform=Z", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/api/fops/state?platform=A", http.StatusMethodNotAllowed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleGetState(rec, httptest.NewRequest(tc.method, tc.target, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
