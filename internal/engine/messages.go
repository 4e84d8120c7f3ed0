package engine

import "github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"

// childKind identifies one of the four children the engine fans work out
// to and waits on for readiness/stop acknowledgement.
type childKind string

const (
	childKafka    childKind = "kafka"
	childStorage  childKind = "storage"
	childVault    childKind = "vault"
	childScenario childKind = "scenario"
)

// initializeMsg carries the bucket/testType the registry passed to Start;
// the engine loads the bundle and security directives itself rather than
// having them handed in, since C5/C6 are its own children.
type initializeMsg struct {
	bucket   string
	testType string
	reply    chan error
}

// childReadyMsg is sent once per child as it finishes its Setup-phase work.
type childReadyMsg struct {
	kind childKind
}

// childStoppedMsg is sent once per child as it finishes its Completing-phase
// teardown.
type childStoppedMsg struct {
	kind childKind
}

// childFailedMsg reports a child's fatal, non-retryable error.
type childFailedMsg struct {
	kind childKind
	err  error
}

// startTestMsg moves Loaded → Executing.
type startTestMsg struct {
	reply chan error
}

// directiveLoadedMsg carries the parsed bundle manifest back from the
// storage child's load; receiving it counts as that child's ChildReady.
type directiveLoadedMsg struct {
	directive domain.BlockStorageDirective
}

// validationFailedMsg reports that the loaded directive failed topic
// directive validation before vault or kafka were engaged.
type validationFailedMsg struct {
	err error
}

// scenarioDoneMsg carries C7's summary back from Executing.
type scenarioDoneMsg struct {
	result domain.TestExecutionResult
	err    error
}

// deleteMsg is C9's cancellation signal.
type deleteMsg struct {
	done chan struct{}
}

// timerFiredMsg is posted by a per-state watcher goroutine when a state
// timeout elapses; generation lets the engine ignore a timer that fired for
// a state it has already left.
type timerFiredMsg struct {
	state      domain.TestState
	generation uint64
}
