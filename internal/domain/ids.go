// Package domain models the entities owned by the Test-Probe execution
// runtime: tests, directives, the CloudEvent envelope, and the schema
// registry's view of a registered schema. See the per-component packages
// (codec, streamworker, engine, registry, dsl) for the behavior built on
// top of these types.
package domain

import "github.com/google/uuid"

// TestID identifies one test run from acceptance through teardown.
// Minted once by the registry at Initialize and never reused.
type TestID = uuid.UUID

// NewTestID mints a fresh TestID.
func NewTestID() TestID {
	return uuid.New()
}
