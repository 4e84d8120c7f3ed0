// Package godogrunner is the concrete ScenarioRunner (C7) implementation,
// running a bundle's .feature files through github.com/cucumber/godog and
// translating its cucumber-JSON report into domain.TestExecutionResult.
// Grounded on axonops-axonops-schema-registry/tests/bdd/bdd_test.go, the
// corpus's only godog usage, adapted from go-test-driven BDD to a
// runtime-invoked godog.TestSuite with step definitions bound to the DSL
// facade instead of an HTTP client.
package godogrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cucumber/godog"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Runner is C7's concrete implementation of domain.ScenarioRunner.
type Runner struct {
	facade FacadeClient
}

var _ domain.ScenarioRunner = (*Runner)(nil)

// New builds a Runner bound to the DSL facade (C10) step definitions call
// into for produce/fetchByCorrelation.
func New(facade FacadeClient) *Runner {
	return &Runner{facade: facade}
}

// Run executes every feature file named in directive.FeatureFiles
// sequentially, writes evidence/cucumber.json under directive.EvidenceDir,
// and returns the aggregated summary. With no feature files it returns a
// passing result at once and writes no report.
func (r *Runner) Run(ctx context.Context, testID domain.TestID, directive domain.BlockStorageDirective) (domain.TestExecutionResult, error) {
	if len(directive.FeatureFiles) == 0 {
		return domain.TestExecutionResult{Passed: true}, nil
	}

	if err := os.MkdirAll(directive.EvidenceDir, 0o755); err != nil {
		return domain.TestExecutionResult{}, fmt.Errorf("create evidence dir: %w", err)
	}

	var cucumberJSON bytes.Buffer
	start := time.Now()

	suite := godog.TestSuite{
		Name: testID.String(),
		ScenarioInitializer: func(sctx *godog.ScenarioContext) {
			registerSteps(sctx, testID, r.facade)
		},
		Options: &godog.Options{
			Format: "cucumber",
			Output: &cucumberJSON,
			Paths:  directive.FeatureFiles,
		},
	}

	exitCode := suite.Run()
	duration := time.Since(start)

	reportPath := filepath.Join(directive.EvidenceDir, "cucumber.json")
	if err := os.WriteFile(reportPath, cucumberJSON.Bytes(), 0o644); err != nil {
		return domain.TestExecutionResult{}, fmt.Errorf("write cucumber.json: %w", err)
	}

	result, err := summarize(cucumberJSON.Bytes(), duration)
	if err != nil {
		return domain.TestExecutionResult{}, fmt.Errorf("parse cucumber report: %w", err)
	}
	if exitCode != 0 && result.ErrorMessage == "" && result.ScenariosFailed == 0 {
		result.ErrorMessage = "godog suite exited non-zero"
		result.Passed = false
	}
	return result, nil
}

// cucumberFeature mirrors the subset of godog's cucumber-JSON formatter
// output this package reads back.
type cucumberFeature struct {
	Elements []cucumberElement `json:"elements"`
}

type cucumberElement struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Steps []cucumberStep  `json:"steps"`
}

type cucumberStep struct {
	Result cucumberStepResult `json:"result"`
}

type cucumberStepResult struct {
	Status string `json:"status"`
}

func summarize(cucumberJSON []byte, duration time.Duration) (domain.TestExecutionResult, error) {
	var features []cucumberFeature
	if len(bytes.TrimSpace(cucumberJSON)) > 0 {
		if err := json.Unmarshal(cucumberJSON, &features); err != nil {
			return domain.TestExecutionResult{}, err
		}
	}

	result := domain.TestExecutionResult{DurationMillis: duration.Milliseconds()}
	for _, feature := range features {
		for _, elem := range feature.Elements {
			if elem.Type != "scenario" {
				continue
			}
			result.ScenarioCount++
			passed, failed, skipped, undefined := 0, 0, 0, 0
			scenarioFailed := false
			for _, step := range elem.Steps {
				result.StepCount++
				switch step.Result.Status {
				case "passed":
					passed++
				case "failed":
					failed++
					scenarioFailed = true
				case "skipped":
					skipped++
				case "undefined", "pending":
					undefined++
					scenarioFailed = true
				}
			}
			result.StepsPassed += passed
			result.StepsFailed += failed
			result.StepsSkipped += skipped
			result.StepsUndefined += undefined

			if scenarioFailed {
				result.ScenariosFailed++
				result.FailedScenarios = append(result.FailedScenarios, elem.Name)
			} else {
				result.ScenariosPassed++
			}
		}
	}

	result.Passed = result.ScenariosFailed == 0 && len(result.FailedScenarios) == 0 && result.ErrorMessage == ""
	return result, nil
}
