package godogrunner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// FacadeClient is the subset of dsl.Facade step definitions call, scoped to
// one testId by the caller so features never need to know it.
type FacadeClient interface {
	Produce(ctx context.Context, testID domain.TestID, topic string, key domain.CloudEvent, value interface{}) domain.ProduceResult
	FetchByCorrelation(ctx context.Context, testID domain.TestID, topic, correlationID string, expectedType interface{}) domain.ConsumedResult
}

// scenarioState carries per-scenario context: the test this run belongs to,
// and the most recent produce/fetch outcome for later assertion steps.
type scenarioState struct {
	testID       domain.TestID
	facade       FacadeClient
	lastProduce  domain.ProduceResult
	lastConsumed domain.ConsumedResult
}

// registerSteps binds the Test-Probe DSL's produce/fetchByCorrelation
// operations to Gherkin step text, grounded on
// axonops-axonops-schema-registry/tests/bdd/steps' convention of one
// regex-matched function per step, holding scenario state in a closure
// variable reset per scenario by ctx.Before.
func registerSteps(ctx *godog.ScenarioContext, testID domain.TestID, facade FacadeClient) {
	state := &scenarioState{testID: testID, facade: facade}

	ctx.Before(func(gctx context.Context, sc *godog.Scenario) (context.Context, error) {
		state.lastProduce = domain.ProduceResult{}
		state.lastConsumed = domain.ConsumedResult{}
		return gctx, nil
	})

	ctx.Step(`^I produce to topic "([^"]*)" an event of type "([^"]*)" with correlation id "([^"]*)" and payload:$`,
		state.produceWithPayload)
	ctx.Step(`^the produce should succeed$`, state.produceShouldSucceed)
	ctx.Step(`^the produce should fail$`, state.produceShouldFail)
	ctx.Step(`^I should receive on topic "([^"]*)" an event with correlation id "([^"]*)"$`,
		state.fetchByCorrelation)
	ctx.Step(`^the received payload should contain "([^"]*)" equal to "([^"]*)"$`, state.payloadFieldEquals)
}

func (s *scenarioState) produceWithPayload(ctx context.Context, topic, eventType, correlationID string, payload *godog.DocString) error {
	var value map[string]interface{}
	if err := json.Unmarshal([]byte(payload.Content), &value); err != nil {
		return fmt.Errorf("parse payload docstring: %w", err)
	}
	key := domain.CloudEvent{Type: eventType, CorrelationID: correlationID}
	s.lastProduce = s.facade.Produce(ctx, s.testID, topic, key, value)
	return nil
}

func (s *scenarioState) produceShouldSucceed() error {
	if !s.lastProduce.IsAck() {
		return fmt.Errorf("expected produce to succeed, got nack cause %q: %v", s.lastProduce.Cause, s.lastProduce.Err)
	}
	return nil
}

func (s *scenarioState) produceShouldFail() error {
	if s.lastProduce.IsAck() {
		return fmt.Errorf("expected produce to fail, but it was acked")
	}
	return nil
}

func (s *scenarioState) fetchByCorrelation(ctx context.Context, topic, correlationID string) error {
	s.lastConsumed = s.facade.FetchByCorrelation(ctx, s.testID, topic, correlationID, nil)
	if !s.lastConsumed.IsSuccess() {
		return fmt.Errorf("no event received for correlation id %q: %s", correlationID, s.lastConsumed.Reason)
	}
	return nil
}

func (s *scenarioState) payloadFieldEquals(field, expected string) error {
	raw := s.lastConsumed.Value
	if len(raw) >= 5 && raw[0] == 0x00 {
		raw = raw[5:] // strip the Confluent magic byte and schema id
	}
	var value map[string]interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("parse received payload: %w", err)
	}
	actual := fmt.Sprintf("%v", value[field])
	if actual != expected {
		return fmt.Errorf("field %q: expected %q, got %q", field, expected, actual)
	}
	return nil
}
