package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type clients struct {
	submit   *connect.Client[structpb.Struct, structpb.Struct]
	getState *connect.Client[structpb.Struct, structpb.Struct]
}

func setup(t *testing.T) clients {
	t.Helper()
	a := models.Athlete{
		ID: uuid.New(), FirstName: "Ana", LastName: "Lopez", Team: "MEX",
		Gender: models.GenderFemale, Category: "F59", BodyWeight: 58.2, StartNumber: 1, LotNumber: 1,
	}
	a.Attempts[0].Declaration = 80
	a.Attempts[models.AttemptsPerLift].Declaration = 100
	repo := competition.NewMemoryRepository(models.Group{Name: "A", Athletes: []models.Athlete{a}})

	f, err := orchestrator.NewFieldOfPlay(orchestrator.Params{
		Platform:   "A",
		Repository: repo,
		Clock:      clockwork.NewFakeClockAt(time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	registry, err := orchestrator.NewRegistry(f)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = registry.Run(ctx); close(done) }()

	mux := http.NewServeMux()
	mux.Handle(NewHandler(NewService(registry)))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})

	return clients{
		submit:   connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+SubmitProcedure),
		getState: connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+GetStateProcedure),
	}
}

func call(t *testing.T, c *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestSubmitRunsCommands(t *testing.T) {
	c := setup(t)

	out, err := call(t, c.submit, map[string]any{"platform": "A", "command": "SwitchGroup", "group": "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", out.GetFields()["platform"].GetStringValue())
	assert.Equal(t, string(fop.StateBreak), out.GetFields()["state"].GetStringValue())

	_, err = call(t, c.submit, map[string]any{"platform": "A", "command": "EndBreak"})
	require.NoError(t, err)
	_, err = call(t, c.submit, map[string]any{"platform": "A", "command": "StartTime"})
	require.NoError(t, err)

	out, err = call(t, c.submit, map[string]any{"platform": "A", "command": "RefereeDecision", "referee": 1, "good": true})
	require.NoError(t, err)
	assert.Equal(t, string(fop.StateTimeRunning), out.GetFields()["state"].GetStringValue())

	state, err := call(t, c.getState, map[string]any{"platform": "A"})
	require.NoError(t, err)
	fields := state.GetFields()
	assert.Equal(t, string(fop.StateTimeRunning), fields["state"].GetStringValue())
	assert.Equal(t, "LOPEZ Ana", fields["current"].GetStructValue().GetFields()["full_name"].GetStringValue())
	assert.Equal(t, float64(60000), fields["time_allowed_ms"].GetNumberValue())
	assert.Equal(t, "PARTIAL", fields["decision"].GetStructValue().GetFields()["phase"].GetStringValue())
}

func TestErrorCodes(t *testing.T) {
	c := setup(t)

	for _, tc := range []struct {
		name   string
		client *connect.Client[structpb.Struct, structpb.Struct]
		fields map[string]any
		code   connect.Code
	}{
		{"missing platform", c.submit, map[string]any{"command": "StartTime"}, connect.CodeInvalidArgument},
		{"unknown command", c.submit, map[string]any{"platform": "A", "command": "Lift"}, connect.CodeInvalidArgument},
		{"bad argument", c.submit, map[string]any{"platform": "A", "command": "SetTime"}, connect.CodeInvalidArgument},
		{"unknown platform", c.submit, map[string]any{"platform": "Z", "command": "StartTime"}, connect.CodeNotFound},
		{"invalid in state", c.submit, map[string]any{"platform": "A", "command": "RefereeDecision", "referee": 1, "good": true}, connect.CodeFailedPrecondition},
		{"unknown group", c.submit, map[string]any{"platform": "A", "command": "SwitchGroup", "group": "Z"}, connect.CodeNotFound},
		{"state of unknown platform", c.getState, map[string]any{"platform": "Z"}, connect.CodeNotFound},
		{"state without platform", c.getState, map[string]any{}, connect.CodeInvalidArgument},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := call(t, tc.client, tc.fields)
			require.Error(t, err)
			assert.Equal(t, tc.code, connect.CodeOf(err))
		})
	}
}
