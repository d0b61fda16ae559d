package forwarder

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/decision"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meetDay = time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)

func header() events.Header { return events.NewHeader("A", meetDay) }

func ptr[T any](v T) *T { return &v }

func TestTimerFormRunningClock(t *testing.T) {
	ends := meetDay.Add(time.Minute)
	form, ok := TimerForm("secret", "A", events.StartTime{
		Header:    header(),
		TimerInfo: events.TimerInfo{Clock: events.Clock{Millis: ptr(int64(60000)), EndsAt: &ends, Running: true}},
	})
	require.True(t, ok)
	assert.Equal(t, "secret", form.Get("updateKey"))
	assert.Equal(t, "A", form.Get("fopName"))
	assert.Equal(t, "StartTime", form.Get("eventType"))
	assert.Equal(t, "60000", form.Get("milliseconds"))
	assert.Equal(t, "1778752860000", form.Get("endTime"))
	assert.Equal(t, "false", form.Get("break"))
}

func TestTimerFormIndefiniteBreak(t *testing.T) {
	form, ok := TimerForm("secret", "A", events.BreakStarted{
		Header:    header(),
		TimerInfo: events.TimerInfo{Break: true, BreakType: fop.BreakTechnical},
	})
	require.True(t, ok)
	assert.True(t, form.Has("milliseconds"))
	assert.Empty(t, form.Get("milliseconds"))
	assert.Empty(t, form.Get("endTime"))
	assert.Equal(t, "true", form.Get("break"))
	assert.Equal(t, string(fop.BreakTechnical), form.Get("breakType"))

	_, ok = TimerForm("secret", "A", events.DownSignal{Header: header()})
	assert.False(t, ok)
}

func TestDecisionForms(t *testing.T) {
	full, ok := DecisionForm("secret", "A", events.DecisionGiven{
		Header: header(), D1: ptr(true), D2: ptr(false), D3: ptr(true), Good: true,
	})
	require.True(t, ok)
	assert.Equal(t, DecisionFull, full.Get("eventType"))
	assert.Equal(t, "true", full.Get("d1"))
	assert.Equal(t, "false", full.Get("d2"))
	assert.Equal(t, "true", full.Get("d3"))
	assert.Equal(t, "true", full.Get("decisionsVisible"))
	assert.Equal(t, "false", full.Get("down"))

	expired, ok := DecisionForm("secret", "A", events.DecisionGiven{Header: header(), TimeExpired: true})
	require.True(t, ok)
	assert.Empty(t, expired.Get("d1"))
	assert.Empty(t, expired.Get("d3"))

	down, ok := DecisionForm("secret", "A", events.DownSignal{Header: header()})
	require.True(t, ok)
	assert.Equal(t, DecisionDown, down.Get("eventType"))
	assert.Equal(t, "true", down.Get("down"))
	assert.Equal(t, "false", down.Get("decisionsVisible"))

	reset, ok := DecisionForm("secret", "A", events.DecisionReset{Header: header()})
	require.True(t, ok)
	assert.Equal(t, DecisionReset, reset.Get("eventType"))
	assert.Equal(t, "false", reset.Get("down"))

	_, ok = DecisionForm("secret", "A", events.StartTime{Header: header()})
	assert.False(t, ok)
}

func TestUpdateForm(t *testing.T) {
	current := events.AthleteView{
		ID: uuid.New(), FullName: "LOPEZ Ana", Team: "MEX", Category: "F59",
		StartNumber: 4, Weight: 85, AttemptNumber: 2,
	}
	s := &orchestrator.Snapshot{
		Platform:         "A",
		State:            fop.StateTimeRunning,
		Group:            "A",
		GroupDescription: "Women 59kg A",
		Current:          &current,
		DisplayOrder:     []events.AthleteView{current},
		LiftsDone:        1,
		TimeAllowed:      time.Minute,
		Decision:         decision.Snapshot{Phase: decision.PhaseEmpty},
	}

	form, err := UpdateForm("secret", s, map[string]string{"Snatch": "Arraché"})
	require.NoError(t, err)
	assert.Equal(t, "A", form.Get("fopName"))
	assert.Equal(t, string(fop.StateTimeRunning), form.Get("fopState"))
	assert.Equal(t, "false", form.Get("break"))
	assert.Equal(t, "false", form.Get("hidden"))
	assert.Equal(t, "LOPEZ Ana", form.Get("fullName"))
	assert.Equal(t, "MEX", form.Get("teamName"))
	assert.Equal(t, "85", form.Get("weight"))
	assert.Equal(t, "2", form.Get("attempt"))
	assert.Equal(t, "60000", form.Get("timeAllowed"))
	assert.Equal(t, "Women 59kg A", form.Get("groupDescription"))

	var athletes []events.AthleteView
	require.NoError(t, json.Unmarshal([]byte(form.Get("groupAthletes")), &athletes))
	require.Len(t, athletes, 1)
	assert.Equal(t, current.ID, athletes[0].ID)
	assert.Equal(t, "[]", form.Get("leaders"))
	assert.JSONEq(t, `{"Snatch":"Arraché"}`, form.Get("translationMap"))
}

func TestUpdateFormHiddenWithoutAthlete(t *testing.T) {
	form, err := UpdateForm("secret", &orchestrator.Snapshot{Platform: "A", State: fop.StateInactive}, nil)
	require.NoError(t, err)
	assert.Equal(t, "true", form.Get("hidden"))
	assert.True(t, form.Has("fullName"))
	assert.Empty(t, form.Get("fullName"))
	assert.Equal(t, "null", form.Get("translationMap"))
}

func TestHashFormIgnoresInsertionOrder(t *testing.T) {
	a, _ := DecisionForm("k", "A", events.DownSignal{Header: header()})
	b, _ := DecisionForm("k", "A", events.DownSignal{Header: events.NewHeader("A", meetDay.Add(time.Hour))})
	c, _ := DecisionForm("k", "A", events.DecisionReset{Header: header()})
	assert.Equal(t, hashForm(a), hashForm(b))
	assert.NotEqual(t, hashForm(a), hashForm(c))
}

func unzip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = body
	}
	return out
}

func TestDefaultBundle(t *testing.T) {
	data, err := Bundle("", map[string]string{"Snatch": "Snatch"})
	require.NoError(t, err)
	files := unzip(t, data)
	require.Contains(t, files, TranslationsEntry)
	assert.JSONEq(t, `{"Snatch":"Snatch"}`, string(files[TranslationsEntry]))
}

func TestDirectoryBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "styles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles", "board.css"), []byte("body{}"), 0o644))

	data, err := Bundle(dir, nil)
	require.NoError(t, err)
	files := unzip(t, data)
	assert.Len(t, files, 2)
	assert.Equal(t, "{}", string(files["config.json"]))
	assert.Equal(t, "body{}", string(files["styles/board.css"]))

	_, err = Bundle(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}
