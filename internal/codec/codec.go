package codec

import (
	"context"
	"fmt"
	"reflect"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
)

// Codec is C1: it turns typed payloads into Confluent-framed bytes and
// back, against a Schema Registry, caching both lookup directions so the
// steady-state path never makes an HTTP call.
type Codec struct {
	registry     *registryClient
	cache        *schemaCache
	autoRegister bool
	metrics      *observability.Metrics
}

// Option configures a Codec at construction time.
type Option func(*Codec)

// WithAutoRegister enables development-mode schema auto-registration on
// cache/registry miss.
func WithAutoRegister(enabled bool) Option {
	return func(c *Codec) { c.autoRegister = enabled }
}

// WithCacheSize bounds the subject/id cache; <= 0 means unbounded.
func WithCacheSize(maxEntries int) Option {
	return func(c *Codec) {
		c.cache = newSchemaCache(maxEntries)
	}
}

// New builds a Codec against the given Schema Registry URL.
func New(schemaRegistryURL string, maxRetries int, metrics *observability.Metrics, opts ...Option) *Codec {
	c := &Codec{
		registry: newRegistryClient(schemaRegistryURL, maxRetries),
		cache:    newSchemaCache(0),
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset clears the schema cache. Used by tests and by explicit operator
// action; the cache is never invalidated otherwise.
func (c *Codec) Reset() {
	c.cache.reset()
}

// Serialize turns payload into Confluent-framed bytes for topic. isKey
// selects the CloudEvent-key naming convention (the key is always a
// CloudEvent; recordName for a key is fixed) versus the value convention
// (recordName derived from payload's type, or domain.DynamicMessageRecordName
// for a dynamic protobuf payload).
func (c *Codec) Serialize(ctx context.Context, payload interface{}, topic string, isKey bool) ([]byte, error) {
	recordName := recordNameFor(payload, isKey)
	subject := domain.Subject(topic, recordName)

	schema, err := c.resolveForSerialize(ctx, subject, payload)
	if err != nil {
		return nil, &domain.SerializationError{Subject: subject, Cause: err}
	}

	encoded, err := encodePayload(schema.Format, schema.SchemaText, payload)
	if err != nil {
		return nil, &domain.SerializationError{Subject: subject, Cause: err}
	}

	if schema.Format == domain.FormatProtobuf {
		framed := encodeHeader(schema.SchemaID, nil)
		framed = append(framed, encodeMessageIndexArray()...)
		framed = append(framed, encoded...)
		return framed, nil
	}
	return encodeHeader(schema.SchemaID, encoded), nil
}

// Deserialize turns Confluent-framed bytes back into target, consulting the
// id cache and, on miss, the registry. target must be a pointer (or, for a
// dynamic protobuf payload, a *dynamicpb.Message).
func (c *Codec) Deserialize(ctx context.Context, raw []byte, topic string, isKey bool, target interface{}) error {
	schemaID, rest, err := decodeHeader(raw)
	if err != nil {
		return &domain.WireFormatError{Cause: err}
	}

	schema, cached := c.cache.lookupSchema(schemaID)
	if !cached {
		c.recordLookup("miss")
		fetched, err := c.registry.fetchByID(ctx, schemaID, domain.Subject(topic, domain.DynamicMessageRecordName))
		if err != nil {
			return &domain.DeserializationError{SchemaID: schemaID, Cause: err}
		}
		schema = fetched
		c.cache.store(schema)
	} else {
		c.recordLookup("hit")
	}

	if schema.Format == domain.FormatProtobuf {
		rest, err = decodeMessageIndexArray(rest)
		if err != nil {
			return &domain.WireFormatError{Cause: err}
		}
	}

	if err := decodePayload(schema.Format, schema.SchemaText, rest, target); err != nil {
		return &domain.DeserializationError{SchemaID: schemaID, Cause: err}
	}
	return nil
}

func (c *Codec) resolveForSerialize(ctx context.Context, subject string, payload interface{}) (domain.RegisteredSchema, error) {
	if id, ok := c.cache.lookupID(subject); ok {
		c.recordLookup("hit")
		if schema, ok := c.cache.lookupSchema(id); ok {
			return schema, nil
		}
	}
	c.recordLookup("miss")

	schema, err := c.registry.fetchLatest(ctx, subject)
	if err == nil {
		c.cache.store(schema)
		return schema, nil
	}
	if !c.autoRegister {
		return domain.RegisteredSchema{}, err
	}

	format, schemaText, inferErr := inferSchema(payload)
	if inferErr != nil {
		return domain.RegisteredSchema{}, fmt.Errorf("no registered schema for %q and auto-register could not infer one: %w", subject, inferErr)
	}
	id, regErr := c.registry.register(ctx, subject, format, schemaText)
	if regErr != nil {
		return domain.RegisteredSchema{}, regErr
	}
	registered := domain.RegisteredSchema{Subject: subject, SchemaID: id, Format: format, SchemaText: schemaText}
	c.cache.store(registered)
	return registered, nil
}

func (c *Codec) recordLookup(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.SchemaRegistryLookups.WithLabelValues(result).Inc()
}

func recordNameFor(payload interface{}, isKey bool) string {
	if isKey {
		return "CloudEvent"
	}
	if payload == nil {
		return domain.DynamicMessageRecordName
	}
	t := reflect.TypeOf(payload)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return domain.DynamicMessageRecordName
	}
	return t.Name()
}
