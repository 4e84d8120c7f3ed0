// Package scenariochild implements C7: the per-test child the engine calls
// during Executing to run the bundle's scenarios. A thin wrapper around
// the injected domain.ScenarioRunner collaborator; the concrete
// godog-backed implementation lives in internal/adapters/godogrunner.
package scenariochild

import (
	"context"
	"fmt"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Child is C7.
type Child struct {
	runner domain.ScenarioRunner
}

// New builds a Child around a ScenarioRunner implementation.
func New(runner domain.ScenarioRunner) *Child {
	return &Child{runner: runner}
}

// Run executes the bundle's scenarios and returns the aggregated summary.
func (c *Child) Run(ctx context.Context, testID domain.TestID, directive domain.BlockStorageDirective) (domain.TestExecutionResult, error) {
	result, err := c.runner.Run(ctx, testID, directive)
	if err != nil {
		return domain.TestExecutionResult{}, fmt.Errorf("scenario child run: %w", err)
	}
	return result, nil
}
