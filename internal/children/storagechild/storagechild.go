// Package storagechild implements C5: the per-test child the engine calls
// during Setup to load the bundle manifest, and during Completing to
// upload evidence. A thin wrapper around the injected
// domain.StorageFunctions collaborator — concrete S3 access lives in
// internal/adapters/blockstorage, never here.
package storagechild

import (
	"context"
	"fmt"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Child is C5.
type Child struct {
	functions domain.StorageFunctions
}

// New builds a Child around a StorageFunctions implementation.
func New(functions domain.StorageFunctions) *Child {
	return &Child{functions: functions}
}

// Load fetches and parses the bundle manifest for testID from bucket.
func (c *Child) Load(ctx context.Context, testID domain.TestID, bucket string) (domain.BlockStorageDirective, error) {
	directive, err := c.functions.Fetch(ctx, testID, bucket)
	if err != nil {
		return domain.BlockStorageDirective{}, fmt.Errorf("storage child load: %w", err)
	}
	return directive, nil
}

// Store uploads the evidence directory to the bundle's evidence prefix.
func (c *Child) Store(ctx context.Context, testID domain.TestID, bucket, evidenceDir string) error {
	if err := c.functions.Store(ctx, testID, bucket, evidenceDir); err != nil {
		return fmt.Errorf("storage child store: %w", err)
	}
	return nil
}
