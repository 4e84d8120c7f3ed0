package domain

// TopicRole distinguishes which side of a topic a directive provisions.
type TopicRole string

const (
	RoleProducer TopicRole = "producer"
	RoleConsumer TopicRole = "consumer"
)

// SecurityProtocol is the Kafka connection security mode for a topic.
type SecurityProtocol string

const (
	ProtocolPlaintext    SecurityProtocol = "PLAINTEXT"
	ProtocolSSL          SecurityProtocol = "SSL"
	ProtocolSASLPlaintext SecurityProtocol = "SASL_PLAINTEXT"
	ProtocolSASLSSL       SecurityProtocol = "SASL_SSL"
)

// EventFilter is an (eventType, version) pair a consumer Stream Worker
// allow-lists. Records whose (type, payloadversion) doesn't match any
// filter in the owning TopicDirective are discarded (offset still commits).
type EventFilter struct {
	EventType string
	Version   string
}

// TopicDirective declares one topic a test needs provisioned, as either a
// producer or a consumer. Validated by the validation package before any
// execution begins (see spec §4.11).
type TopicDirective struct {
	Topic            string
	Role             TopicRole
	ClientPrincipal  string
	EventFilters     []EventFilter
	Metadata         map[string]string
	// BootstrapServers is the topic's override, nil meaning the manifest
	// omitted the key entirely ("use engine default"). A non-nil pointer
	// to "" is a distinct, invalid state (spec §4.11) from omission, which
	// a plain string can't represent.
	BootstrapServers *string
}

// EffectiveBootstrapServers returns the topic's override if set, else the
// engine-wide default.
func (t TopicDirective) EffectiveBootstrapServers(engineDefault string) string {
	if t.BootstrapServers != nil && *t.BootstrapServers != "" {
		return *t.BootstrapServers
	}
	return engineDefault
}

// KafkaSecurityDirective pairs security material with a (topic, role).
// Treated as opaque by everything except Kafka client setup.
type KafkaSecurityDirective struct {
	Topic          string
	Role           TopicRole
	Protocol       SecurityProtocol
	CredentialBlob KafkaCredentials
}

// KafkaCredentials holds the fields the Kafka client setup needs to
// authenticate. Which fields are populated depends on Protocol/Mechanism.
type KafkaCredentials struct {
	SASLMechanism string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string
	Password      string
	TLSCACert     string
	TLSSkipVerify bool
}

// Key identifies the (topic, role) pair a KafkaSecurityDirective pairs with.
func (d KafkaSecurityDirective) Key() TopicRoleKey {
	return TopicRoleKey{Topic: d.Topic, Role: d.Role}
}

// TopicRoleKey is the lookup key pairing a TopicDirective with its
// KafkaSecurityDirective and with the Stream Worker spawned for it.
type TopicRoleKey struct {
	Topic string
	Role  TopicRole
}

// BlockStorageDirective is the bundle manifest loaded by the Storage Child.
// Immutable after load; consumed once by the engine.
type BlockStorageDirective struct {
	ObjectStorageLocation string
	EvidenceDir           string
	Bucket                string
	TopicDirectives       []TopicDirective
	UserGluePackages      []string
	Tags                  map[string]string
	FeatureFiles          []string // paths, relative to the bundle root, of *.feature files
}
