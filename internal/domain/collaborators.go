package domain

import "context"

// StorageFunctions is the collaborator interface the engine consumes for
// bundle fetch and evidence upload (C5, spec §6.4). The core never depends
// on a specific cloud SDK; internal/adapters/blockstorage is this
// repository's own concrete implementation.
type StorageFunctions interface {
	Fetch(ctx context.Context, testID TestID, bucket string) (BlockStorageDirective, error)
	Store(ctx context.Context, testID TestID, bucket, evidenceDir string) error
}

// VaultFunctions is the collaborator interface the engine consumes for
// security material resolution (C6, spec §6.4).
type VaultFunctions interface {
	FetchSecurityDirectives(ctx context.Context, directive BlockStorageDirective) ([]KafkaSecurityDirective, error)
}

// ScenarioRunner is the collaborator interface the engine consumes to run
// the pre-authored scenario (C7, spec §6.4). The core never depends on a
// specific Gherkin/step-definition layer.
type ScenarioRunner interface {
	Run(ctx context.Context, testID TestID, directive BlockStorageDirective) (TestExecutionResult, error)
}

// TestExecutionResult is C7's summary, written as evidence/cucumber.json and
// reported up through the engine to the registry.
type TestExecutionResult struct {
	Passed            bool
	ScenarioCount     int
	ScenariosPassed   int
	ScenariosFailed   int
	ScenariosSkipped  int
	StepCount         int
	StepsPassed       int
	StepsFailed       int
	StepsSkipped      int
	StepsUndefined    int
	DurationMillis    int64
	ErrorMessage      string
	FailedScenarios   []string
}

// SuccessRate returns scenariosPassed/scenarioCount * 100, rounded to one
// decimal, or 0.0 when scenarioCount is 0 (spec §4.7).
func (r TestExecutionResult) SuccessRate() float64 {
	if r.ScenarioCount == 0 {
		return 0.0
	}
	rate := float64(r.ScenariosPassed) / float64(r.ScenarioCount) * 100
	return roundToOneDecimal(rate)
}

func roundToOneDecimal(v float64) float64 {
	scaled := v*10 + 0.5
	return float64(int64(scaled)) / 10
}
