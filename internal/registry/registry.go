// Package registry implements C9: the process-wide directory between the
// outside world and every running Test Execution Engine. Grounded on
// orbit's inMemoryClusterRepository — a mutex-guarded map with no I/O
// of its own; all per-test work is sharded onto the owning engine.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Engine is the subset of the C8 state machine the registry drives.
type Engine interface {
	Initialize(ctx context.Context, bucket, testType string) error
	StartTest(ctx context.Context) error
	Delete(ctx context.Context)
	Snapshot() domain.TestStatusResponse
}

// EngineFactory builds a fresh engine instance for a newly started test.
type EngineFactory func(testID domain.TestID) Engine

// StartOutcome is the result of Start: Accepted or Rejected(cause).
type StartOutcome string

const (
	Accepted StartOutcome = "accepted"
	Rejected StartOutcome = "rejected"
)

// Registry is C9.
type Registry struct {
	newEngine EngineFactory

	mu      sync.Mutex
	records map[domain.TestID]*domain.TestRecord
	engines map[domain.TestID]Engine
}

// New builds a Registry that spawns engines via newEngine.
func New(newEngine EngineFactory) *Registry {
	return &Registry{
		newEngine: newEngine,
		records:   make(map[domain.TestID]*domain.TestRecord),
		engines:   make(map[domain.TestID]Engine),
	}
}

// Initialize mints a fresh TestID and creates an Uninitialized record.
func (r *Registry) Initialize() domain.TestID {
	id := domain.NewTestID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &domain.TestRecord{TestID: id, State: domain.StateUninitialized}
	return id
}

// Start spawns a C8 instance for testID and forwards Initialize to it.
// Rejects an unknown id, a terminal-state id, or one already started.
func (r *Registry) Start(ctx context.Context, testID domain.TestID, bucket, testType string) (StartOutcome, error) {
	r.mu.Lock()
	record, ok := r.records[testID]
	if !ok {
		r.mu.Unlock()
		return Rejected, domain.ErrTestNotFound
	}
	if record.State.Terminal() {
		r.mu.Unlock()
		return Rejected, domain.ErrTestTerminal
	}
	if record.State != domain.StateUninitialized {
		r.mu.Unlock()
		return Rejected, domain.ErrTestAlreadyStarted
	}

	engine := r.newEngine(testID)
	r.engines[testID] = engine
	record.State = domain.StateSetup
	record.TestType = testType
	record.Bucket = bucket
	now := time.Now()
	record.StartTime = &now
	r.mu.Unlock()

	// The REST surface exposes no separate "run" call (spec §6.1): once
	// Setup reaches Loaded the registry immediately tells the engine to
	// execute. loadingStateTimeout exists as the engine's own safety net,
	// not as a window for an external trigger.
	go func() {
		if err := engine.Initialize(ctx, bucket, testType); err != nil {
			r.mu.Lock()
			record.State = domain.StateFailed
			record.Error = err.Error()
			r.mu.Unlock()
			return
		}
		if err := engine.StartTest(ctx); err != nil {
			r.mu.Lock()
			record.Error = err.Error()
			r.mu.Unlock()
		}
	}()

	return Accepted, nil
}

// Status returns the engine-reported view of testID, or ErrTestNotFound.
// Reading it also reconciles the record against the engine's live state,
// the same way ListActive does.
func (r *Registry) Status(testID domain.TestID) (domain.TestStatusResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[testID]
	if !ok {
		return domain.TestStatusResponse{}, domain.ErrTestNotFound
	}
	engine, hasEngine := r.engines[testID]
	if !hasEngine {
		return domain.TestStatusResponse{
			TestID: testID,
			State:  record.State,
		}, nil
	}

	snap := engine.Snapshot()
	r.reconcileLocked(testID, record, snap.State)
	return snap, nil
}

// Delete forwards cancellation to the owning engine and removes the
// record once the engine acknowledges a terminal state.
func (r *Registry) Delete(ctx context.Context, testID domain.TestID) error {
	r.mu.Lock()
	engine, ok := r.engines[testID]
	_, recordExists := r.records[testID]
	r.mu.Unlock()

	if !recordExists {
		return domain.ErrTestNotFound
	}
	if ok {
		engine.Delete(ctx)
	}

	r.mu.Lock()
	delete(r.records, testID)
	delete(r.engines, testID)
	r.mu.Unlock()
	return nil
}

// ListActive returns every test not in a terminal state; diagnostic only.
// A record's own State field is only ever set at Start time and on a
// synchronous Initialize failure — once an engine is running, its state
// only advances inside the engine itself, so this reconciles each record
// against its engine's current Snapshot rather than trusting the stale
// field, and evicts any record whose engine has aged out to Deleted on
// its own (spec §3's retention timer), exactly as an explicit Delete call
// would.
func (r *Registry) ListActive() []domain.TestID {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]domain.TestID, 0, len(r.records))
	for id, rec := range r.records {
		state := rec.State
		if engine, ok := r.engines[id]; ok {
			state = engine.Snapshot().State
		}
		if r.reconcileLocked(id, rec, state) {
			continue
		}
		if !state.Terminal() {
			active = append(active, id)
		}
	}
	return active
}

// reconcileLocked mirrors an engine-reported state into its record and, if
// the engine has reached Deleted on its own, evicts the record entirely —
// internal/domain/testrecord.go documents Deleted as "removed from the
// registry rather than observed in that state". Must be called with mu
// held. Returns true if the record was evicted.
func (r *Registry) reconcileLocked(id domain.TestID, rec *domain.TestRecord, state domain.TestState) bool {
	if state == domain.StateDeleted {
		delete(r.records, id)
		delete(r.engines, id)
		return true
	}
	rec.State = state
	return false
}
