package domain

import "time"

// TestState is the lifecycle state of one test, mirrored by the engine's
// state machine (spec §4.8) into the registry's view (spec §4).
type TestState string

const (
	StateUninitialized TestState = "Uninitialized"
	StateSetup         TestState = "Setup"
	StateLoaded        TestState = "Loaded"
	StateExecuting     TestState = "Executing"
	StateCompleting    TestState = "Completing"
	StateCompleted     TestState = "Completed"
	StateFailed        TestState = "Failed"
	StateDeleted       TestState = "Deleted"
)

// Terminal reports whether a TestState accepts no further transitions
// (Deleted is terminal too, but is removed from the registry rather than
// observed in that state).
func (s TestState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateDeleted:
		return true
	}
	return false
}

// FailureCause names why an engine transitioned to Failed, surfaced
// verbatim as TestStatusResponse.Error (spec §6.1's "short cause tag").
type FailureCause string

const (
	CauseSetupTimeout    FailureCause = "setup-timeout"
	CauseLoadingTimeout  FailureCause = "loading-timeout"
	CauseExecutionTimeout FailureCause = "execution-timeout"
	CauseCancelled       FailureCause = "cancelled"
	CauseChildCrashLoop  FailureCause = "child-crash-loop"
	CauseStashOverflow   FailureCause = "stash-overflow"
	CauseChildError      FailureCause = "child-error"
	CauseValidationFailed FailureCause = "validation"
)

// TestRecord is the registry's (C9) bookkeeping entry for one test.
type TestRecord struct {
	TestID    TestID
	State     TestState
	TestType  string
	Bucket    string
	StartTime *time.Time
	EndTime   *time.Time
	Success   *bool
	Error     string // short cause tag, e.g. "setup-timeout", "cancelled"
}

// TestStatusResponse is what Status() returns to a caller (spec §4.9, §6.1).
type TestStatusResponse struct {
	TestID          TestID
	State           TestState
	CurrentPhase    string
	ProgressPercent int
	StartTime       *time.Time
	EndTime         *time.Time
	Success         *bool
	Error           string
}
