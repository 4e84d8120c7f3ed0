// Package vaultsecrets is the concrete VaultFunctions (C6) implementation
// backed by HashiCorp Vault's KV v2 secrets engine. Grounded on the
// teacher's adapter shape (one small client wrapper behind a domain
// collaborator interface) and hashicorp/vault/api usage.
package vaultsecrets

import (
	"context"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// Reader is the subset of *vaultapi.Client the adapter calls, narrowed for
// testability.
type Reader interface {
	ReadSecret(ctx context.Context, path string) (map[string]interface{}, error)
}

type clientReader struct {
	client *vaultapi.Client
	mount  string
}

func (r *clientReader) ReadSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := r.client.KVv2(r.mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return secret.Data, nil
}

// Adapter implements domain.VaultFunctions.
type Adapter struct {
	reader Reader
}

var _ domain.VaultFunctions = (*Adapter)(nil)

// New builds an Adapter from a configured Vault client and KV v2 mount.
func New(client *vaultapi.Client, kvMount string) *Adapter {
	return &Adapter{reader: &clientReader{client: client, mount: kvMount}}
}

// NewWithReader builds an Adapter around an already-configured reader,
// used by tests to inject a fake.
func NewWithReader(reader Reader) *Adapter {
	return &Adapter{reader: reader}
}

// FetchSecurityDirectives resolves one KafkaSecurityDirective per (topic,
// role) named in the bundle's topic directives. The Vault path for each is
// {clientPrincipal}/{topic}/{role} under the adapter's KV mount, with
// clientPrincipal "default" when the directive leaves it empty.
func (a *Adapter) FetchSecurityDirectives(ctx context.Context, directive domain.BlockStorageDirective) ([]domain.KafkaSecurityDirective, error) {
	directives := make([]domain.KafkaSecurityDirective, 0, len(directive.TopicDirectives))
	for _, td := range directive.TopicDirectives {
		path := secretPath(td)
		data, err := a.reader.ReadSecret(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read security material for topic %q: %w", td.Topic, err)
		}
		directives = append(directives, toSecurityDirective(td, data))
	}
	return directives, nil
}

func secretPath(td domain.TopicDirective) string {
	principal := td.ClientPrincipal
	if principal == "" {
		principal = "default"
	}
	return fmt.Sprintf("%s/%s/%s", principal, td.Topic, td.Role)
}

func toSecurityDirective(td domain.TopicDirective, data map[string]interface{}) domain.KafkaSecurityDirective {
	return domain.KafkaSecurityDirective{
		Topic:    td.Topic,
		Role:     td.Role,
		Protocol: domain.SecurityProtocol(stringField(data, "protocol", string(domain.ProtocolSASLSSL))),
		CredentialBlob: domain.KafkaCredentials{
			SASLMechanism: stringField(data, "saslMechanism", "PLAIN"),
			Username:      stringField(data, "username", ""),
			Password:      stringField(data, "password", ""),
			TLSCACert:     stringField(data, "caCert", ""),
			TLSSkipVerify: boolField(data, "tlsSkipVerify", false),
		},
	}
}

func stringField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return fallback
}

func boolField(data map[string]interface{}, key string, fallback bool) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return fallback
}
