// Package engine implements C8: the per-test state machine that drives a
// test from Setup through Completed (or Failed) by coordinating its four
// children (C4 kafkachild, C5 storagechild, C6 vaultchild, C7
// scenariochild). Grounded on the teacher's pipeline.Run: one goroutine
// owns every state transition end to end, everything else talks to it by
// posting onto its inbox, exactly as streamworker's Producer/Consumer do
// for their own single-writer loops.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/kafkachild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/scenariochild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/storagechild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/vaultchild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/config"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/registry"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/validation"
)

const inboxSize = 64

var _ registry.Engine = (*Engine)(nil)

// Engine is C8, one instance per test.
type Engine struct {
	testID  domain.TestID
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	storage  *storagechild.Child
	vault    *vaultchild.Child
	kafka    *kafkachild.Supervisor
	scenario *scenariochild.Child

	inbox     chan any
	once      sync.Once
	rootCtx   context.Context
	cancelAll context.CancelFunc

	mu       sync.RWMutex
	snapshot domain.TestStatusResponse

	// fields below are owned exclusively by run(); never touched from
	// another goroutine.
	state         domain.TestState
	generation    uint64
	bucket        string
	testType      string
	directive     domain.BlockStorageDirective
	childReady    map[childKind]bool
	childStopped  map[childKind]bool
	pendingReply  chan error
	stash         []any
	crashHistory  []time.Time
	cancelExecute context.CancelFunc
}

// New builds an Engine for testID around its four children. storage,
// vault and scenario are process-wide, stateless collaborators; kafka is
// built fresh per test by the caller (it owns per-test Stream Workers).
func New(testID domain.TestID, cfg *config.Config, storage *storagechild.Child, vault *vaultchild.Child, kafka *kafkachild.Supervisor, scenario *scenariochild.Child, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rootCtx, cancelAll := context.WithCancel(context.Background())
	return &Engine{
		testID:       testID,
		cfg:          cfg,
		logger:       logger.With("component", "engine", "test_id", testID.String()),
		metrics:      metrics,
		clock:        clock,
		storage:      storage,
		vault:        vault,
		kafka:        kafka,
		scenario:     scenario,
		inbox:        make(chan any, inboxSize),
		rootCtx:      rootCtx,
		cancelAll:    cancelAll,
		state:        domain.StateUninitialized,
		childReady:   make(map[childKind]bool, 4),
		childStopped: make(map[childKind]bool, 4),
		snapshot:     domain.TestStatusResponse{TestID: testID, State: domain.StateUninitialized},
	}
}

// Initialize starts the engine's message loop and drives it through Setup,
// blocking until the test reaches Loaded or Failed (spec §4.8, §4.9).
func (e *Engine) Initialize(ctx context.Context, bucket, testType string) error {
	e.once.Do(func() { go e.run() })

	reply := make(chan error, 1)
	select {
	case e.inbox <- initializeMsg{bucket: bucket, testType: testType, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartTest moves Loaded → Executing.
func (e *Engine) StartTest(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case e.inbox <- startTestMsg{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delete cancels the test: fans Stop out to every child and marks the
// engine Failed(Cancelled), then lets it age out to Deleted on its own
// exceptionStateTimeout, exactly as a natural failure would (spec §4.8).
// Returns once the cancellation has been accepted, not once teardown
// finishes.
func (e *Engine) Delete(ctx context.Context) {
	done := make(chan struct{})
	select {
	case e.inbox <- deleteMsg{done: done}:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Snapshot returns the current status view. Reads never touch the
// message loop: state is written there and mirrored out under mu on
// every transition, matching the registry's own mutex-over-plain-data
// idiom (internal/registry).
func (e *Engine) Snapshot() domain.TestStatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

func (e *Engine) run() {
	for {
		msg := <-e.inbox
		e.dispatch(msg)
		if e.state == domain.StateDeleted {
			return
		}
	}
}

// dispatch applies one message to the state machine. Called both from the
// main loop and when replaying stashed commands after a state transition
// unblocks them.
func (e *Engine) dispatch(msg any) {
	switch m := msg.(type) {
	case initializeMsg:
		e.handleInitialize(m)
	case directiveLoadedMsg:
		e.directive = m.directive
		e.handleChildReady(childReadyMsg{kind: childStorage})
	case validationFailedMsg:
		e.handleValidationFailed(m)
	case startTestMsg:
		e.handleStartTest(m)
	case deleteMsg:
		e.handleDelete(m)
	case childReadyMsg:
		e.handleChildReady(m)
	case childStoppedMsg:
		e.handleChildStopped(m)
	case childFailedMsg:
		e.handleChildFailed(m)
	case scenarioDoneMsg:
		e.handleScenarioDone(m)
	case timerFiredMsg:
		e.handleTimerFired(m)
	}
}

// stash holds a command that doesn't apply to the current state until a
// later transition unblocks it (spec's stash buffer, bounded by
// stashBufferSize). Overflow fails the test outright rather than
// dropping the command silently.
func (e *Engine) stashCommand(msg any) {
	if len(e.stash) >= e.cfg.StashBufferSize {
		reply := e.pendingReply
		e.pendingReply = nil
		err := fmt.Errorf("stash buffer exceeded %d entries", e.cfg.StashBufferSize)
		e.fail(domain.CauseStashOverflow, err)
		if reply != nil {
			reply <- err
		}
		return
	}
	e.stash = append(e.stash, msg)
}

// replayStash drains and re-dispatches every stashed command, in arrival
// order, after a transition that may unblock them.
func (e *Engine) replayStash() {
	pending := e.stash
	e.stash = nil
	for _, msg := range pending {
		e.dispatch(msg)
	}
}

// transition moves to a new state, publishes the snapshot, bumps the
// timer generation (invalidating any in-flight timer for the state just
// left) and arms the new state's timeout, if it has one.
func (e *Engine) transition(state domain.TestState, mutate func(*domain.TestStatusResponse)) {
	from := e.state
	e.state = state
	e.generation++
	gen := e.generation

	e.mu.Lock()
	e.snapshot.State = state
	if mutate != nil {
		mutate(&e.snapshot)
	}
	snap := e.snapshot
	e.mu.Unlock()

	e.logger.Info("state transition", "from", string(from), "to", string(state), "phase", snap.CurrentPhase)
	if e.metrics != nil {
		e.metrics.EngineStateTransitions.WithLabelValues(string(from), string(state)).Inc()
	}

	switch state {
	case domain.StateSetup:
		e.armTimer(state, gen, e.cfg.SetupStateTimeout)
	case domain.StateLoaded:
		e.armTimer(state, gen, e.cfg.LoadingStateTimeout)
	case domain.StateExecuting:
		e.armTimer(state, gen, e.cfg.MaxExecutionTime)
	case domain.StateCompleted:
		e.armTimer(state, gen, e.cfg.CompletedStateTimeout)
	case domain.StateFailed:
		e.armTimer(state, gen, e.cfg.ExceptionStateTimeout)
	}
}

func (e *Engine) armTimer(state domain.TestState, generation uint64, timeout time.Duration) {
	go func() {
		<-e.clock.After(timeout)
		e.inbox <- timerFiredMsg{state: state, generation: generation}
	}()
}

func (e *Engine) handleTimerFired(m timerFiredMsg) {
	if m.generation != e.generation || m.state != e.state {
		return // stale: engine already left that state
	}
	switch m.state {
	case domain.StateSetup:
		reply := e.pendingReply
		e.pendingReply = nil
		err := fmt.Errorf("setup did not complete within %s", e.cfg.SetupStateTimeout)
		e.fail(domain.CauseSetupTimeout, err)
		if reply != nil {
			reply <- err
		}
	case domain.StateLoaded:
		e.fail(domain.CauseLoadingTimeout, fmt.Errorf("test was not started within %s of loading", e.cfg.LoadingStateTimeout))
	case domain.StateExecuting:
		if e.cancelExecute != nil {
			e.cancelExecute()
		}
		e.fail(domain.CauseExecutionTimeout, fmt.Errorf("execution exceeded %s", e.cfg.MaxExecutionTime))
	case domain.StateCompleted, domain.StateFailed:
		e.transition(domain.StateDeleted, nil)
	}
}

func (e *Engine) handleInitialize(m initializeMsg) {
	if e.state != domain.StateUninitialized {
		m.reply <- fmt.Errorf("engine already initialized")
		return
	}
	e.bucket = m.bucket
	e.testType = m.testType
	e.pendingReply = m.reply
	start := e.clock.Now()
	e.transition(domain.StateSetup, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "loading bundle"
		s.StartTime = &start
	})
	e.runSetup()
}

// runSetup drives the storage → vault → kafka readiness chain (the
// scenario child is counted ready together with vault) on its own
// goroutine, reporting back through the inbox so every state
// mutation still happens on the single writer.
func (e *Engine) runSetup() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.inbox <- childFailedMsg{kind: childKafka, err: fmt.Errorf("setup panic: %v", r)}
			}
		}()

		ctx := e.rootCtx

		directive, err := e.storage.Load(ctx, e.testID, e.bucket)
		if err != nil {
			e.inbox <- childFailedMsg{kind: childStorage, err: err}
			return
		}
		if errs := validation.ValidateTopicDirectives(directive.TopicDirectives); errs.HasErrors() {
			e.inbox <- validationFailedMsg{err: errs}
			return
		}
		e.inbox <- directiveLoadedMsg{directive: directive}

		security, err := e.vault.FetchSecurityDirectives(ctx, directive)
		if err != nil {
			e.inbox <- childFailedMsg{kind: childVault, err: err}
			return
		}
		e.inbox <- childReadyMsg{kind: childVault}
		e.inbox <- childReadyMsg{kind: childScenario}

		if err := e.kafka.Initialize(ctx, directive.TopicDirectives, security); err != nil {
			e.inbox <- childFailedMsg{kind: childKafka, err: err}
			return
		}
		e.inbox <- childReadyMsg{kind: childKafka}
	}()
}

func (e *Engine) handleChildReady(m childReadyMsg) {
	if e.state != domain.StateSetup {
		return
	}
	if e.childReady[m.kind] {
		return // duplicate ChildReady, ignored per spec
	}
	e.childReady[m.kind] = true
	if len(e.childReady) < 4 {
		return
	}

	reply := e.pendingReply
	e.pendingReply = nil
	e.transition(domain.StateLoaded, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "awaiting start"
		s.ProgressPercent = 25
	})
	if reply != nil {
		reply <- nil
	}
	e.replayStash()
}

func (e *Engine) handleChildFailed(m childFailedMsg) {
	if e.state.Terminal() {
		return
	}
	reply := e.pendingReply
	e.pendingReply = nil
	if e.recordCrash() {
		e.fail(domain.CauseChildCrashLoop, fmt.Errorf("%s crashed more than %d times within %s", m.kind, e.cfg.MaxRestarts, e.cfg.RestartTimeRange))
	} else {
		e.fail(domain.CauseChildError, fmt.Errorf("%s: %w", m.kind, m.err))
	}
	if reply != nil {
		reply <- m.err
	}
}

// handleValidationFailed fails the test on bad topic directives before
// vault or kafka ever start, so C8 never spawns them (spec §8 scenario 3).
func (e *Engine) handleValidationFailed(m validationFailedMsg) {
	if e.state.Terminal() {
		return
	}
	reply := e.pendingReply
	e.pendingReply = nil
	e.fail(domain.CauseValidationFailed, m.err)
	if reply != nil {
		reply <- m.err
	}
}

// recordCrash appends a crash timestamp, prunes entries outside the
// rolling restartTimeRange window, and reports whether the window has
// exceeded maxRestarts.
func (e *Engine) recordCrash() bool {
	now := e.clock.Now()
	cutoff := now.Add(-e.cfg.RestartTimeRange)

	kept := e.crashHistory[:0]
	for _, t := range e.crashHistory {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	e.crashHistory = kept

	return len(e.crashHistory) > e.cfg.MaxRestarts
}

func (e *Engine) handleStartTest(m startTestMsg) {
	if e.state == domain.StateSetup {
		e.stashCommand(m)
		return
	}
	if e.state != domain.StateLoaded {
		m.reply <- fmt.Errorf("cannot start test in state %s", e.state)
		return
	}

	execCtx, cancel := context.WithTimeout(e.rootCtx, e.cfg.MaxExecutionTime)
	e.cancelExecute = cancel
	e.transition(domain.StateExecuting, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "running scenarios"
		s.ProgressPercent = 50
	})
	m.reply <- nil

	go func() {
		result, err := e.scenario.Run(execCtx, e.testID, e.directive)
		e.inbox <- scenarioDoneMsg{result: result, err: err}
	}()
}

func (e *Engine) handleScenarioDone(m scenarioDoneMsg) {
	if e.state != domain.StateExecuting {
		return
	}
	if e.cancelExecute != nil {
		e.cancelExecute()
		e.cancelExecute = nil
	}

	if m.err != nil {
		e.fail(domain.CauseChildError, fmt.Errorf("%s: %w", childScenario, m.err))
		return
	}

	success := m.result.Passed
	cause := ""
	if !success {
		cause = string(domain.CauseChildError)
	}
	e.transition(domain.StateCompleting, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "uploading evidence"
		s.ProgressPercent = 75
		s.Success = &success
		if cause != "" {
			s.Error = cause
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	go func() {
		defer cancel()
		if err := e.storage.Store(ctx, e.testID, e.bucket, e.directive.EvidenceDir); err != nil {
			e.logger.Warn("evidence upload failed", "error", err)
		}
		e.inbox <- childStoppedMsg{kind: childStorage}
	}()
	go func() {
		if err := e.kafka.Stop(ctx); err != nil {
			e.logger.Warn("kafka child stop failed", "error", err)
		}
		e.inbox <- childStoppedMsg{kind: childKafka}
	}()
	e.inbox <- childStoppedMsg{kind: childVault}
	e.inbox <- childStoppedMsg{kind: childScenario}
}

func (e *Engine) handleChildStopped(m childStoppedMsg) {
	if e.state != domain.StateCompleting {
		return
	}
	if e.childStopped[m.kind] {
		return
	}
	e.childStopped[m.kind] = true
	if len(e.childStopped) < 4 {
		return
	}

	e.cancelAll()
	now := e.clock.Now()
	e.transition(domain.StateCompleted, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "completed"
		s.ProgressPercent = 100
		s.EndTime = &now
	})
}

func (e *Engine) handleDelete(m deleteMsg) {
	defer close(m.done)
	if e.state.Terminal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	defer cancel()
	e.cancelAll() // unblock any in-flight setup/execution call
	if err := e.kafka.Stop(ctx); err != nil {
		e.logger.Warn("kafka child stop failed", "error", err)
	}

	reply := e.pendingReply
	e.pendingReply = nil
	e.fail(domain.CauseCancelled, nil)
	if reply != nil {
		reply <- domain.ErrCancelled
	}
}

// fail transitions to Failed(cause). err may be nil when the cause alone
// is self-explanatory (e.g. an operator-initiated cancellation).
func (e *Engine) fail(cause domain.FailureCause, err error) {
	e.cancelAll()
	now := e.clock.Now()
	e.transition(domain.StateFailed, func(s *domain.TestStatusResponse) {
		s.CurrentPhase = "failed"
		s.EndTime = &now
		failed := false
		s.Success = &failed
		s.Error = string(cause)
	})
	if err != nil {
		e.logger.Warn("test failed", "cause", string(cause), "error", err)
	} else {
		e.logger.Info("test failed", "cause", string(cause))
	}
}
