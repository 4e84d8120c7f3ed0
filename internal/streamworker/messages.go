// Package streamworker implements C2 (producer) and C3 (consumer): one
// single-goroutine, bounded-inbox worker per (testId, topic, role),
// grounded on the teacher's pipeline run-loop (a single goroutine reading
// one channel to completion) generalized from a fixed extract-transform-
// load cycle to FIFO ask/reply request handling.
package streamworker

import (
	"context"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// produceRequest is C2's inbox message: serialize and send one record,
// then reply exactly once.
type produceRequest struct {
	key      domain.CloudEvent
	value    interface{}
	replyTo  chan domain.ProduceResult
	ctx      context.Context
}

// fetchRequest is C3's inbox message: return the first stored record
// matching correlationID, or NotAvailable after a bounded wait.
type fetchRequest struct {
	correlationID string
	expectedType  interface{}
	replyTo       chan domain.ConsumedResult
	ctx           context.Context
}

// stopRequest asks a worker to drain and terminate; done is closed once
// termination is complete.
type stopRequest struct {
	done chan struct{}
}
