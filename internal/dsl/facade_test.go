package dsl

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

type fakeProducer struct {
	result domain.ProduceResult
	delay  time.Duration
}

func (f *fakeProducer) ProduceEvent(ctx context.Context, key domain.CloudEvent, value interface{}) <-chan domain.ProduceResult {
	reply := make(chan domain.ProduceResult, 1)
	go func() {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		reply <- f.result
	}()
	return reply
}

type fakeConsumer struct {
	result domain.ConsumedResult
}

func (f *fakeConsumer) FetchByCorrelation(ctx context.Context, correlationID string, expectedType interface{}) <-chan domain.ConsumedResult {
	reply := make(chan domain.ConsumedResult, 1)
	reply <- f.result
	return reply
}

func TestFacade_Produce_RoutesToRegisteredProducer(t *testing.T) {
	f := New(time.Second)
	testID := uuid.New()
	f.RegisterProducer(testID, "orders", &fakeProducer{result: domain.Ack()})

	res := f.Produce(context.Background(), testID, "orders", domain.CloudEvent{}, "payload")
	assert.True(t, res.IsAck())
}

func TestFacade_Produce_NoSuchStream(t *testing.T) {
	f := New(time.Second)
	res := f.Produce(context.Background(), uuid.New(), "missing", domain.CloudEvent{}, "payload")
	require.False(t, res.IsAck())
	assert.ErrorIs(t, res.Err, domain.ErrNoSuchStream)
}

func TestFacade_Produce_TimesOut(t *testing.T) {
	f := New(10 * time.Millisecond)
	testID := uuid.New()
	f.RegisterProducer(testID, "orders", &fakeProducer{result: domain.Ack(), delay: 100 * time.Millisecond})

	res := f.Produce(context.Background(), testID, "orders", domain.CloudEvent{}, "payload")
	require.False(t, res.IsAck())
	assert.Equal(t, domain.NackTimeout, res.Cause)
}

func TestFacade_FetchByCorrelation_RoutesToRegisteredConsumer(t *testing.T) {
	f := New(time.Second)
	testID := uuid.New()
	f.RegisterConsumer(testID, "orders", &fakeConsumer{result: domain.Success(domain.CloudEvent{ID: "e-1"}, nil, nil)})

	res := f.FetchByCorrelation(context.Background(), testID, "orders", "corr-1", nil)
	assert.True(t, res.IsSuccess())
}

func TestFacade_Unregister_ClearsRoutes(t *testing.T) {
	f := New(time.Second)
	testID := uuid.New()
	f.RegisterProducer(testID, "orders", &fakeProducer{result: domain.Ack()})
	f.Unregister(testID, "orders")

	res := f.Produce(context.Background(), testID, "orders", domain.CloudEvent{}, "payload")
	assert.ErrorIs(t, res.Err, domain.ErrNoSuchStream)
}

func TestFacade_ProduceBatch_ReturnsOneAckPerRecord(t *testing.T) {
	f := New(time.Second)
	testID := uuid.New()
	f.RegisterProducer(testID, "orders", &fakeProducer{result: domain.Ack()})

	keys := []domain.CloudEvent{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	values := []interface{}{"a", "b", "c"}
	results := f.ProduceBatch(context.Background(), testID, "orders", keys, values)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.IsAck())
	}
}
