package studyplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare array", `[{"title":"Romans 1","start":"2026-03-03T07:00:00","end":""}]`},
		{"schedule key", `{"schedule":[{"title":"Romans 1","start":"2026-03-03T07:00:00","end":""}]}`},
		{"events key", `{"events":[{"title":"Romans 1","start":"2026-03-03T07:00:00","end":""}]}`},
		{"fenced", "```json\n{\"schedule\":[{\"title\":\"Romans 1\",\"start\":\"2026-03-03T07:00:00\"}]}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSchedule(tt.text)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Romans 1", got[0].Title)
			assert.Equal(t, "2026-03-03T07:00:00", got[0].Start)
		})
	}
}

func TestParseSchedule_Rejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"not json", "Sure! Here is your plan."},
		{"empty array", `[]`},
		{"empty schedule", `{"schedule":[]}`},
		{"unknown key", `{"plan":[{"title":"x","start":"2026-03-03T07:00:00"}]}`},
		{"null schedule", `{"schedule":null}`},
		{"scalar", `"2026-03-03T07:00:00"`},
		{"wrong element type", `{"schedule":[1,2,3]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSchedule(tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchedule)

			var ise *InvalidScheduleError
			assert.ErrorAs(t, err, &ise)
			assert.NotEmpty(t, ise.Reason)
		})
	}
}

func TestParseSchedule_ScheduleWinsOverEvents(t *testing.T) {
	got, err := parseSchedule(`{"schedule":[{"title":"a","start":"2026-03-03T07:00:00"}],"events":[{"title":"b"},{"title":"c"}]}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
}
