package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

type fakeEngine struct {
	initErr  error
	startErr error
	snapshot domain.TestStatusResponse
	deleted  bool
}

func (f *fakeEngine) Initialize(ctx context.Context, bucket, testType string) error { return f.initErr }
func (f *fakeEngine) StartTest(ctx context.Context) error                          { return f.startErr }
func (f *fakeEngine) Delete(ctx context.Context)                                    { f.deleted = true }
func (f *fakeEngine) Snapshot() domain.TestStatusResponse                           { return f.snapshot }

func TestRegistry_Initialize_CreatesUninitializedRecord(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })
	id := r.Initialize()

	status, err := r.Status(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUninitialized, status.State)
}

func TestRegistry_Start_AcceptsUninitializedTest(t *testing.T) {
	engine := &fakeEngine{snapshot: domain.TestStatusResponse{State: domain.StateExecuting}}
	r := New(func(domain.TestID) Engine { return engine })
	id := r.Initialize()

	outcome, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
}

func TestRegistry_Start_RejectsUnknownTest(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })

	outcome, err := r.Start(context.Background(), domain.NewTestID(), "bucket", "kafka-it")
	assert.Equal(t, Rejected, outcome)
	assert.ErrorIs(t, err, domain.ErrTestNotFound)
}

func TestRegistry_Start_RejectsAlreadyStarted(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })
	id := r.Initialize()

	_, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)

	outcome, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	assert.Equal(t, Rejected, outcome)
	assert.ErrorIs(t, err, domain.ErrTestAlreadyStarted)
}

func TestRegistry_Status_UnknownTestReturnsError(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })
	_, err := r.Status(domain.NewTestID())
	assert.ErrorIs(t, err, domain.ErrTestNotFound)
}

func TestRegistry_Delete_ForwardsToEngineAndRemovesRecord(t *testing.T) {
	engine := &fakeEngine{}
	r := New(func(domain.TestID) Engine { return engine })
	id := r.Initialize()
	_, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)

	err = r.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, engine.deleted)

	_, err = r.Status(id)
	assert.ErrorIs(t, err, domain.ErrTestNotFound)
}

func TestRegistry_Delete_UnknownTestReturnsError(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })
	err := r.Delete(context.Background(), domain.NewTestID())
	assert.ErrorIs(t, err, domain.ErrTestNotFound)
}

func TestRegistry_ListActive_IncludesEveryNonTerminalTest(t *testing.T) {
	r := New(func(domain.TestID) Engine { return &fakeEngine{} })
	active := r.Initialize()
	r.Initialize()

	_, err := r.Start(context.Background(), active, "bucket", "kafka-it")
	require.NoError(t, err)

	list := r.ListActive()
	assert.Len(t, list, 2)
}

func TestRegistry_ListActive_ExcludesEngineReportedTerminalState(t *testing.T) {
	engine := &fakeEngine{snapshot: domain.TestStatusResponse{State: domain.StateExecuting}}
	r := New(func(domain.TestID) Engine { return engine })
	id := r.Initialize()

	_, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)
	assert.Len(t, r.ListActive(), 1, "engine reports Executing: still active")

	// The engine completes entirely on its own; the registry's own record
	// never learns about it except by asking the engine directly.
	engine.snapshot = domain.TestStatusResponse{State: domain.StateCompleted}
	assert.Empty(t, r.ListActive(), "engine reports Completed: no longer active")
}

func TestRegistry_ListActive_EvictsRecordOnceEngineSelfDeletes(t *testing.T) {
	engine := &fakeEngine{snapshot: domain.TestStatusResponse{State: domain.StateFailed}}
	r := New(func(domain.TestID) Engine { return engine })
	id := r.Initialize()

	_, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)

	// completedStateTimeout/exceptionStateTimeout elapses: the engine ages
	// itself out to Deleted without anyone calling Registry.Delete.
	engine.snapshot = domain.TestStatusResponse{State: domain.StateDeleted}
	assert.Empty(t, r.ListActive())

	_, err = r.Status(id)
	assert.ErrorIs(t, err, domain.ErrTestNotFound, "record must be evicted, not just hidden from ListActive")
}

func TestRegistry_Start_AcceptsDespiteEngineInitializeFailure(t *testing.T) {
	// Initialize failure is reported asynchronously (see Start's goroutine);
	// Start itself only rejects on a bad testId/state, never on engine error.
	engine := &fakeEngine{initErr: errors.New("boom")}
	r := New(func(domain.TestID) Engine { return engine })
	id := r.Initialize()

	outcome, err := r.Start(context.Background(), id, "bucket", "kafka-it")
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
}
