package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEvent_Validate(t *testing.T) {
	cases := []struct {
		name    string
		event   CloudEvent
		wantErr string
	}{
		{
			name: "valid",
			event: CloudEvent{
				ID: "e-1", Source: "test-probe", SpecVersion: "1.0",
				Type: "TestEvent", CorrelationID: "c-1",
			},
		},
		{
			name:    "missing id",
			event:   CloudEvent{Source: "s", SpecVersion: "1.0", Type: "t", CorrelationID: "c"},
			wantErr: "id",
		},
		{
			name:    "missing correlationid",
			event:   CloudEvent{ID: "e", Source: "s", SpecVersion: "1.0", Type: "t"},
			wantErr: "correlationid",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewCloudEvent_DefaultsSpecVersion(t *testing.T) {
	e := NewCloudEvent("e-1", "test-probe", "TestEvent", "c-1")
	assert.Equal(t, "1.0", e.SpecVersion)
	assert.False(t, e.Time.IsZero())
}

func TestTestExecutionResult_SuccessRate(t *testing.T) {
	cases := []struct {
		name   string
		result TestExecutionResult
		want   float64
	}{
		{"no scenarios", TestExecutionResult{}, 0.0},
		{"all passed", TestExecutionResult{ScenarioCount: 4, ScenariosPassed: 4}, 100.0},
		{"partial", TestExecutionResult{ScenarioCount: 3, ScenariosPassed: 1}, 33.3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.result.SuccessRate(), 0.01)
		})
	}
}
