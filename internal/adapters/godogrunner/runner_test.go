package godogrunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCucumberJSON = `[
  {
    "elements": [
      {
        "type": "scenario",
        "name": "produce and consume",
        "steps": [
          {"result": {"status": "passed"}},
          {"result": {"status": "passed"}}
        ]
      },
      {
        "type": "scenario",
        "name": "broken scenario",
        "steps": [
          {"result": {"status": "passed"}},
          {"result": {"status": "failed"}}
        ]
      }
    ]
  }
]`

func TestSummarize_AggregatesAcrossScenarios(t *testing.T) {
	result, err := summarize([]byte(sampleCucumberJSON), 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ScenarioCount)
	assert.Equal(t, 1, result.ScenariosPassed)
	assert.Equal(t, 1, result.ScenariosFailed)
	assert.Equal(t, 4, result.StepCount)
	assert.Equal(t, 3, result.StepsPassed)
	assert.Equal(t, 1, result.StepsFailed)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{"broken scenario"}, result.FailedScenarios)
	assert.Equal(t, int64(5000), result.DurationMillis)
}

func TestSummarize_EmptyReportIsPassing(t *testing.T) {
	result, err := summarize([]byte(""), time.Second)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.ScenarioCount)
}
