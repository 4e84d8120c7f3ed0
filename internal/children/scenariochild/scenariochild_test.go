package scenariochild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

type fakeRunner struct {
	result domain.TestExecutionResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, testID domain.TestID, directive domain.BlockStorageDirective) (domain.TestExecutionResult, error) {
	return f.result, f.err
}

func TestChild_Run_ReturnsSummaryOnSuccess(t *testing.T) {
	fake := &fakeRunner{result: domain.TestExecutionResult{Passed: true, ScenarioCount: 1, ScenariosPassed: 1}}
	c := New(fake)

	result, err := c.Run(context.Background(), domain.NewTestID(), domain.BlockStorageDirective{})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.ScenarioCount)
}

func TestChild_Run_WrapsError(t *testing.T) {
	fake := &fakeRunner{err: errors.New("godog panic")}
	c := New(fake)

	_, err := c.Run(context.Background(), domain.NewTestID(), domain.BlockStorageDirective{})
	assert.Error(t, err)
}
