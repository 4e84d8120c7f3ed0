package streamworker

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"strings"

	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// ErrUnsupportedSASLMechanism is returned when a directive names a SASL
// mechanism this worker doesn't implement.
var ErrUnsupportedSASLMechanism = errors.New("unsupported SASL mechanism")

// ErrInvalidCACert is returned when a directive's CA certificate PEM
// cannot be parsed.
var ErrInvalidCACert = errors.New("failed to parse CA certificate")

// buildSASLMechanism translates a KafkaCredentials directive into a
// kafka-go SASL mechanism. Grounded on orbit's apache.buildSASLMechanism,
// translated from franz-go's sasl.Mechanism to kafka-go's (the teacher's
// own direct dependency), and from a franz-go-specific auth-func closure
// to kafka-go's struct-literal mechanisms.
func buildSASLMechanism(creds domain.KafkaCredentials) (sasl.Mechanism, error) {
	if creds.Username == "" || creds.SASLMechanism == "" {
		return nil, nil
	}

	switch strings.ToUpper(creds.SASLMechanism) {
	case "PLAIN":
		return plain.Mechanism{Username: creds.Username, Password: creds.Password}, nil

	case "SCRAM-SHA-256":
		mech, err := scram.Mechanism(scram.SHA256, creds.Username, creds.Password)
		if err != nil {
			return nil, err
		}
		return mech, nil

	case "SCRAM-SHA-512":
		mech, err := scram.Mechanism(scram.SHA512, creds.Username, creds.Password)
		if err != nil {
			return nil, err
		}
		return mech, nil

	default:
		return nil, ErrUnsupportedSASLMechanism
	}
}

// buildTLSConfig builds a *tls.Config from a KafkaCredentials directive and
// the owning topic's security protocol. Returns nil when TLS isn't called
// for. Grounded on orbit's apache.buildTLSConfig / shouldEnableTLS.
func buildTLSConfig(protocol domain.SecurityProtocol, creds domain.KafkaCredentials) (*tls.Config, error) {
	if !protocolRequiresTLS(protocol) {
		return nil, nil
	}

	cfg := &tls.Config{
		InsecureSkipVerify: creds.TLSSkipVerify, //nolint:gosec // explicit directive opt-in for test environments
		MinVersion:         tls.VersionTLS12,
	}

	if creds.TLSCACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(creds.TLSCACert)) {
			return nil, ErrInvalidCACert
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func protocolRequiresTLS(protocol domain.SecurityProtocol) bool {
	return protocol == domain.ProtocolSSL || protocol == domain.ProtocolSASLSSL
}
