// Package kafkachild implements C4: the per-test supervisor that turns a
// bundle's topic directives into running Stream Workers (C2/C3) and fans
// Initialize/Stop out to the whole group. Grounded on the teacher's
// run.go supervised-start pattern, generalized from "start one pipeline"
// to "start N workers, one per topic directive".
package kafkachild

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/codec"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/dsl"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/streamworker"
)

const (
	defaultInboxSize   = 100
	defaultFetchTimeout = 10 * time.Second
)

// FacadeRegistrar is the subset of dsl.Facade the supervisor wires workers
// into as they're spawned, and out of as they're stopped.
type FacadeRegistrar interface {
	RegisterProducer(testID domain.TestID, topic string, p dsl.Producer)
	RegisterConsumer(testID domain.TestID, topic string, c dsl.Consumer)
	Unregister(testID domain.TestID, topic string)
}

var _ FacadeRegistrar = (*dsl.Facade)(nil)

// Supervisor is C4, one instance per test.
type Supervisor struct {
	testID      domain.TestID
	defaultBoot string
	codec       *codec.Codec
	logger      *slog.Logger
	metrics     *observability.Metrics
	facade      FacadeRegistrar

	mu          sync.Mutex
	initialized bool
	directives  []domain.TopicDirective
	producers   map[domain.TopicRoleKey]*streamworker.Producer
	consumers   map[domain.TopicRoleKey]*streamworker.Consumer
}

// New builds a Supervisor for one test.
func New(testID domain.TestID, defaultBootstrapServers string, c *codec.Codec, logger *slog.Logger, metrics *observability.Metrics, facade FacadeRegistrar) *Supervisor {
	return &Supervisor{
		testID:      testID,
		defaultBoot: defaultBootstrapServers,
		codec:       c,
		logger:      logger,
		metrics:     metrics,
		facade:      facade,
		producers:   make(map[domain.TopicRoleKey]*streamworker.Producer),
		consumers:   make(map[domain.TopicRoleKey]*streamworker.Consumer),
	}
}

// Initialize spawns one Stream Worker per topic directive, paired with its
// matching security directive. A second call carrying an identical
// directive set is a no-op.
func (s *Supervisor) Initialize(ctx context.Context, directives []domain.TopicDirective, security []domain.KafkaSecurityDirective) error {
	s.mu.Lock()
	if s.initialized && sameDirectives(s.directives, directives) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	securityByKey := make(map[domain.TopicRoleKey]domain.KafkaSecurityDirective, len(security))
	for _, sec := range security {
		securityByKey[sec.Key()] = sec
	}

	for _, dir := range directives {
		key := domain.TopicRoleKey{Topic: dir.Topic, Role: dir.Role}
		sec, ok := securityByKey[key]
		if !ok {
			sec = domain.KafkaSecurityDirective{Topic: dir.Topic, Role: dir.Role, Protocol: domain.ProtocolPlaintext}
		}
		bootstrap := dir.EffectiveBootstrapServers(s.defaultBoot)

		switch dir.Role {
		case domain.RoleProducer:
			p, err := streamworker.NewProducer(dir.Topic, bootstrap, sec.CredentialBlob, sec.Protocol, s.codec, s.logger, s.metrics, defaultInboxSize)
			if err != nil {
				return fmt.Errorf("spawn producer for topic %q: %w", dir.Topic, err)
			}
			s.mu.Lock()
			s.producers[key] = p
			s.mu.Unlock()
			s.facade.RegisterProducer(s.testID, dir.Topic, p)
		case domain.RoleConsumer:
			c, err := streamworker.NewConsumer(dir.Topic, bootstrap, sec.CredentialBlob, sec.Protocol, dir.EventFilters, s.codec, s.logger, s.metrics, defaultFetchTimeout)
			if err != nil {
				return fmt.Errorf("spawn consumer for topic %q: %w", dir.Topic, err)
			}
			s.mu.Lock()
			s.consumers[key] = c
			s.mu.Unlock()
			s.facade.RegisterConsumer(s.testID, dir.Topic, c)
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.directives = directives
	s.mu.Unlock()
	return nil
}

// Stop fans Stop out to every spawned worker, unregistering each from the
// facade as it's stopped.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	producers := make([]*streamworker.Producer, 0, len(s.producers))
	for key, p := range s.producers {
		producers = append(producers, p)
		s.facade.Unregister(s.testID, key.Topic)
	}
	consumers := make([]*streamworker.Consumer, 0, len(s.consumers))
	for key, c := range s.consumers {
		consumers = append(consumers, c)
		s.facade.Unregister(s.testID, key.Topic)
	}
	s.mu.Unlock()

	var firstErr error
	for _, p := range producers {
		if err := p.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range consumers {
		if err := c.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sameDirectives compares identity fields only (topic, role, bootstrap
// override) rather than relying on struct equality, since TopicDirective
// carries slice/map fields that aren't comparable with ==.
func sameDirectives(a, b []domain.TopicDirective) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Topic != b[i].Topic || a[i].Role != b[i].Role || !sameBootstrapOverride(a[i].BootstrapServers, b[i].BootstrapServers) {
			return false
		}
	}
	return true
}

// sameBootstrapOverride compares two BootstrapServers pointers by value
// rather than by address, since each TopicDirective is decoded/constructed
// independently and never shares a pointer with another.
func sameBootstrapOverride(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
