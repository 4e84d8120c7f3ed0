package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, result, err := Load()
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 30*time.Second, cfg.ActorSystemTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, 10*time.Minute, cfg.MaxExecutionTime)
	assert.Equal(t, 100, cfg.StashBufferSize)
	assert.Equal(t, 5*time.Second, cfg.DSLAskTimeout)
	assert.Equal(t, "localhost:9092", cfg.KafkaBootstrapServers)
	assert.Equal(t, "http://localhost:8081", cfg.KafkaSchemaRegistryURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ACTOR_SYSTEM_TIMEOUT", "1m")
	t.Setenv("MAX_EXECUTION_TIME", "5m")
	t.Setenv("POOL_SIZE", "4")
	t.Setenv("STASH_BUFFER_SIZE", "250")
	t.Setenv("DSL_ASK_TIMEOUT", "2s")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SCHEMA_REGISTRY_URL", "https://registry.internal:8081")
	t.Setenv("CUCUMBER_GLUE_PACKAGES", "com.example.steps, com.example.hooks")

	cfg, result, err := Load()
	require.NoError(t, err)
	assert.True(t, result.OK())

	assert.Equal(t, time.Minute, cfg.ActorSystemTimeout)
	assert.Equal(t, 5*time.Minute, cfg.MaxExecutionTime)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 250, cfg.StashBufferSize)
	assert.Equal(t, 2*time.Second, cfg.DSLAskTimeout)
	assert.Equal(t, "broker1:9092,broker2:9092", cfg.KafkaBootstrapServers)
	assert.Equal(t, "https://registry.internal:8081", cfg.KafkaSchemaRegistryURL)
	assert.Equal(t, []string{"com.example.steps", "com.example.hooks"}, cfg.CucumberGluePackages)
}

func TestValidate_MaxExecutionTimeMustExceedActorSystemTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.ActorSystemTimeout = 10 * time.Minute
	cfg.MaxExecutionTime = 5 * time.Minute

	result := cfg.Validate()
	require.False(t, result.OK())
	assert.Contains(t, result.Errors[0], "maxExecutionTime")
}

func TestValidate_CleanupDelayMustBeLessThanMaxExecutionTime(t *testing.T) {
	cfg := defaultConfig()
	cfg.CleanupDelay = cfg.MaxExecutionTime

	result := cfg.Validate()
	require.False(t, result.OK())
	assert.Contains(t, result.Errors[0], "cleanupDelay")
}

func TestValidate_StateTimeoutsMustBeLessThanMaxExecutionTime(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"setupStateTimeout", func(c *Config) { c.SetupStateTimeout = c.MaxExecutionTime }, "setupStateTimeout"},
		{"loadingStateTimeout", func(c *Config) { c.LoadingStateTimeout = c.MaxExecutionTime }, "loadingStateTimeout"},
		{"completedStateTimeout", func(c *Config) { c.CompletedStateTimeout = c.MaxExecutionTime }, "completedStateTimeout"},
		{"exceptionStateTimeout", func(c *Config) { c.ExceptionStateTimeout = c.MaxExecutionTime }, "exceptionStateTimeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)

			result := cfg.Validate()
			require.False(t, result.OK())
			assert.Contains(t, result.Errors[0], tc.want)
		})
	}
}

func TestValidate_StashBufferSizeRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.StashBufferSize = 0
	assert.False(t, cfg.Validate().OK())

	cfg.StashBufferSize = 10001
	assert.False(t, cfg.Validate().OK())

	cfg.StashBufferSize = 10000
	assert.True(t, cfg.Validate().OK())
}

func TestValidate_PoolSizeWarnsAboveThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.PoolSize = 51

	result := cfg.Validate()
	require.True(t, result.OK())
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "poolSize")
}

func TestValidate_DSLAskTimeoutBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.DSLAskTimeout = 50 * time.Millisecond
	assert.False(t, cfg.Validate().OK())

	cfg.DSLAskTimeout = 31 * time.Second
	result := cfg.Validate()
	require.True(t, result.OK())
	assert.Contains(t, result.Warnings[0], "dslAskTimeout")
}

func TestValidate_SchemaRegistryURLScheme(t *testing.T) {
	cfg := defaultConfig()
	cfg.KafkaSchemaRegistryURL = "registry.internal:8081"

	result := cfg.Validate()
	require.False(t, result.OK())
	assert.Contains(t, result.Errors[0], "schemaRegistryUrl")
}

func defaultConfig() *Config {
	return &Config{
		ActorSystemTimeout:     30 * time.Second,
		MaxExecutionTime:       10 * time.Minute,
		CleanupDelay:           5 * time.Second,
		StashBufferSize:        100,
		PoolSize:               8,
		DSLAskTimeout:          5 * time.Second,
		KafkaBootstrapServers:  "localhost:9092",
		KafkaSchemaRegistryURL: "http://localhost:8081",
	}
}
