// Package vaultchild implements C6: the per-test child the engine calls
// during Setup to resolve security material for every topic directive in
// the bundle. A thin wrapper around domain.VaultFunctions; concrete Vault
// access lives in internal/adapters/vaultsecrets.
package vaultchild

import (
	"context"
	"fmt"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Child is C6.
type Child struct {
	functions domain.VaultFunctions
}

// New builds a Child around a VaultFunctions implementation.
func New(functions domain.VaultFunctions) *Child {
	return &Child{functions: functions}
}

// FetchSecurityDirectives resolves one KafkaSecurityDirective per (topic,
// role) in directive.TopicDirectives.
func (c *Child) FetchSecurityDirectives(ctx context.Context, directive domain.BlockStorageDirective) ([]domain.KafkaSecurityDirective, error) {
	security, err := c.functions.FetchSecurityDirectives(ctx, directive)
	if err != nil {
		return nil, fmt.Errorf("vault child fetch security directives: %w", err)
	}
	return security, nil
}
