package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicDirective_EffectiveBootstrapServers(t *testing.T) {
	alt := "kafka-alt:9092"
	cases := []struct {
		name     string
		override *string
		want     string
	}{
		{"key omitted uses engine default", nil, "kafka-default:9092"},
		{"override routes to its own cluster", &alt, "kafka-alt:9092"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := TopicDirective{Topic: "t", BootstrapServers: tc.override}
			assert.Equal(t, tc.want, d.EffectiveBootstrapServers("kafka-default:9092"))
		})
	}
}

func TestKafkaSecurityDirective_Key(t *testing.T) {
	d := KafkaSecurityDirective{Topic: "orders", Role: RoleConsumer}
	assert.Equal(t, TopicRoleKey{Topic: "orders", Role: RoleConsumer}, d.Key())
}
