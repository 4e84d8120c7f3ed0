// Package dsl implements C10: the in-process API scenario (step
// definition) code calls. It owns the (testId, topic) → worker routing
// table and translates scenario calls into ask/reply against C2/C3,
// enforcing a configurable ask timeout idiomatically with
// context.WithTimeout rather than an actor framework's built-in ask.
package dsl

import (
	"context"
	"time"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Producer is the subset of streamworker.Producer the facade calls.
type Producer interface {
	ProduceEvent(ctx context.Context, key domain.CloudEvent, value interface{}) <-chan domain.ProduceResult
}

// Consumer is the subset of streamworker.Consumer the facade calls.
type Consumer interface {
	FetchByCorrelation(ctx context.Context, correlationID string, expectedType interface{}) <-chan domain.ConsumedResult
}

type routeKey struct {
	testID domain.TestID
	topic  string
}

// Facade is C10. One Facade instance is shared by the whole process; each
// engine registers and deregisters its own test's workers as they're born
// and stopped.
type Facade struct {
	askTimeout time.Duration

	mu        chan struct{} // binary mutex via channel, matching the single-writer style used elsewhere
	producers map[routeKey]Producer
	consumers map[routeKey]Consumer
}

// New builds a Facade with the given ask/reply timeout.
func New(askTimeout time.Duration) *Facade {
	f := &Facade{
		askTimeout: askTimeout,
		mu:         make(chan struct{}, 1),
		producers:  make(map[routeKey]Producer),
		consumers:  make(map[routeKey]Consumer),
	}
	f.mu <- struct{}{}
	return f
}

func (f *Facade) lock()   { <-f.mu }
func (f *Facade) unlock() { f.mu <- struct{}{} }

// RegisterProducer wires a producer stream worker into the routing table.
func (f *Facade) RegisterProducer(testID domain.TestID, topic string, p Producer) {
	f.lock()
	defer f.unlock()
	f.producers[routeKey{testID, topic}] = p
}

// RegisterConsumer wires a consumer stream worker into the routing table.
func (f *Facade) RegisterConsumer(testID domain.TestID, topic string, c Consumer) {
	f.lock()
	defer f.unlock()
	f.consumers[routeKey{testID, topic}] = c
}

// Unregister clears a test's routing entries, called as its workers stop.
func (f *Facade) Unregister(testID domain.TestID, topic string) {
	f.lock()
	defer f.unlock()
	delete(f.producers, routeKey{testID, topic})
	delete(f.consumers, routeKey{testID, topic})
}

// Produce locates the producer for (testId, topic) and blocks the caller
// until a reply or the ask timeout expires.
func (f *Facade) Produce(ctx context.Context, testID domain.TestID, topic string, key domain.CloudEvent, value interface{}) domain.ProduceResult {
	f.lock()
	p, ok := f.producers[routeKey{testID, topic}]
	f.unlock()
	if !ok {
		return domain.Nack(domain.NackBrokerError, domain.ErrNoSuchStream)
	}

	askCtx, cancel := context.WithTimeout(ctx, f.askTimeout)
	defer cancel()

	select {
	case res := <-p.ProduceEvent(askCtx, key, value):
		return res
	case <-askCtx.Done():
		return domain.Nack(domain.NackTimeout, domain.ErrAskTimeout)
	}
}

// ProduceBatch logically equals N serial Produce calls, preserving order.
func (f *Facade) ProduceBatch(ctx context.Context, testID domain.TestID, topic string, keys []domain.CloudEvent, values []interface{}) []domain.ProduceResult {
	results := make([]domain.ProduceResult, len(keys))
	for i := range keys {
		results[i] = f.Produce(ctx, testID, topic, keys[i], values[i])
	}
	return results
}

// FetchByCorrelation locates the consumer for (testId, topic) and blocks
// the caller until a reply or the ask timeout expires.
func (f *Facade) FetchByCorrelation(ctx context.Context, testID domain.TestID, topic, correlationID string, expectedType interface{}) domain.ConsumedResult {
	f.lock()
	c, ok := f.consumers[routeKey{testID, topic}]
	f.unlock()
	if !ok {
		return domain.NotAvailable(domain.ReasonCancelled)
	}

	askCtx, cancel := context.WithTimeout(ctx, f.askTimeout)
	defer cancel()

	select {
	case res := <-c.FetchByCorrelation(askCtx, correlationID, expectedType):
		return res
	case <-askCtx.Done():
		return domain.NotAvailable(domain.ReasonTimedOut)
	}
}
