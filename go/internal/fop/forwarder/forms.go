package forwarder

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
)

// Decision event types understood by the remote scoreboard.
const (
	DecisionFull  = "FULL_DECISION"
	DecisionDown  = "DOWN_SIGNAL"
	DecisionReset = "RESET"
)

// UpdateForm renders the full scoreboard state of a snapshot.
func UpdateForm(updateKey string, s *orchestrator.Snapshot, translations map[string]string) (url.Values, error) {
	v := url.Values{}
	v.Set("updateKey", updateKey)
	v.Set("fopName", s.Platform)
	v.Set("fopState", string(s.State))
	v.Set("break", strconv.FormatBool(s.InBreak()))
	v.Set("breakType", string(s.BreakType))
	v.Set("ceremonyType", string(s.Ceremony))
	v.Set("groupName", s.Group)
	v.Set("groupDescription", s.GroupDescription)
	v.Set("liftsDone", strconv.Itoa(s.LiftsDone))
	v.Set("timeAllowed", strconv.FormatInt(s.TimeAllowed.Milliseconds(), 10))
	v.Set("hidden", strconv.FormatBool(s.State == fop.StateInactive || s.Current == nil))
	v.Set("decisionVisible", strconv.FormatBool(s.Decision.Visible()))
	v.Set("down", strconv.FormatBool(s.Decision.DownSignal))

	if a := s.Current; a != nil {
		v.Set("fullName", a.FullName)
		v.Set("teamName", a.Team)
		v.Set("startNumber", strconv.Itoa(a.StartNumber))
		v.Set("categoryName", a.Category)
		v.Set("weight", strconv.Itoa(a.Weight))
		v.Set("attempt", strconv.Itoa(a.AttemptNumber))
	} else {
		for _, k := range []string{"fullName", "teamName", "startNumber", "categoryName", "weight", "attempt"} {
			v.Set(k, "")
		}
	}

	for key, value := range map[string]any{
		"groupAthletes":  nonNil(s.DisplayOrder),
		"leaders":        nonNil(s.Leaders),
		"translationMap": translations,
	} {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		v.Set(key, string(data))
	}
	return v, nil
}

func nonNil(views []events.AthleteView) []events.AthleteView {
	if views == nil {
		return []events.AthleteView{}
	}
	return views
}

// TimerForm renders a clock event. An empty milliseconds field means the clock has no
// duration.
func TimerForm(updateKey, platform string, ev events.Event) (url.Values, bool) {
	info, ok := events.Timer(ev)
	if !ok {
		return nil, false
	}
	v := url.Values{}
	v.Set("updateKey", updateKey)
	v.Set("fopName", platform)
	v.Set("eventType", string(ev.Kind()))
	v.Set("milliseconds", "")
	if info.Clock.Millis != nil {
		v.Set("milliseconds", strconv.FormatInt(*info.Clock.Millis, 10))
	}
	v.Set("endTime", "")
	if info.Clock.EndsAt != nil {
		v.Set("endTime", strconv.FormatInt(info.Clock.EndsAt.UnixMilli(), 10))
	}
	v.Set("break", strconv.FormatBool(info.Break))
	v.Set("breakType", string(info.BreakType))
	return v, true
}

// DecisionForm renders a referee decision event.
func DecisionForm(updateKey, platform string, ev events.Event) (url.Values, bool) {
	v := url.Values{}
	v.Set("updateKey", updateKey)
	v.Set("fopName", platform)
	v.Set("d1", "")
	v.Set("d2", "")
	v.Set("d3", "")

	switch e := ev.(type) {
	case events.DecisionGiven:
		v.Set("eventType", DecisionFull)
		v.Set("d1", light(e.D1))
		v.Set("d2", light(e.D2))
		v.Set("d3", light(e.D3))
		v.Set("decisionsVisible", "true")
		v.Set("down", "false")
	case events.DownSignal:
		v.Set("eventType", DecisionDown)
		v.Set("decisionsVisible", "false")
		v.Set("down", "true")
	case events.DecisionReset:
		v.Set("eventType", DecisionReset)
		v.Set("decisionsVisible", "false")
		v.Set("down", "false")
	default:
		return nil, false
	}
	return v, true
}

func light(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// hashForm fingerprints a form. Encode sorts the keys, so equal forms hash equally.
func hashForm(v url.Values) uint64 {
	return xxhash.Sum64String(v.Encode())
}
