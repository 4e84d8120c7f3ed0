// Package config loads Test-Probe's typed configuration from the
// environment, ported structurally from the teacher's env-var-with-defaults
// loader: explicit per-field parsing, explicit per-field validation, and a
// single Load() entrypoint returning (*Config, ValidationResult, error).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the typed record consumed by the engine (C8), its children, and
// the DSL facade (C10), covering every key in spec.md §6.5.
type Config struct {
	ActorSystemTimeout    time.Duration
	ShutdownTimeout       time.Duration
	InitializationTimeout time.Duration
	PoolSize              int
	MaxExecutionTime      time.Duration
	MaxRestarts           int
	RestartTimeRange      time.Duration
	MaxRetries            int
	CleanupDelay          time.Duration
	StashBufferSize       int

	SetupStateTimeout     time.Duration
	LoadingStateTimeout   time.Duration
	CompletedStateTimeout time.Duration
	ExceptionStateTimeout time.Duration

	CucumberGluePackages []string
	ServicesTimeout      time.Duration
	DSLAskTimeout        time.Duration

	KafkaBootstrapServers  string
	KafkaSchemaRegistryURL string
	KafkaOAuthTokenEndpoint string
	KafkaOAuthClientScope   string

	HTTPAddr string

	VaultAddr    string
	VaultKVMount string

	LogLevel  string
	LogFormat string
}

// ValidationResult is C12's result shape: either ValidationSuccess(warnings)
// or ValidationFailure(errors, warnings). Failures prevent startup;
// warnings are logged but do not.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the configuration is free of hard errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

func validationSuccess(warnings []string) ValidationResult {
	return ValidationResult{Warnings: warnings}
}

func validationFailure(errs, warnings []string) ValidationResult {
	return ValidationResult{Errors: errs, Warnings: warnings}
}

// Load reads Config from the environment, applying defaults where unset,
// then runs Validate. A non-nil error means startup must not proceed.
func Load() (*Config, ValidationResult, error) {
	cfg := &Config{
		ActorSystemTimeout:    durationOrDefault("ACTOR_SYSTEM_TIMEOUT", 30*time.Second),
		ShutdownTimeout:       durationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		InitializationTimeout: durationOrDefault("INITIALIZATION_TIMEOUT", 15*time.Second),
		PoolSize:              intOrDefault("POOL_SIZE", 8),
		MaxExecutionTime:      durationOrDefault("MAX_EXECUTION_TIME", 10*time.Minute),
		MaxRestarts:           intOrDefault("MAX_RESTARTS", 3),
		RestartTimeRange:      durationOrDefault("RESTART_TIME_RANGE", time.Minute),
		MaxRetries:            intOrDefault("MAX_RETRIES", 5),
		CleanupDelay:          durationOrDefault("CLEANUP_DELAY", 5*time.Second),
		StashBufferSize:       intOrDefault("STASH_BUFFER_SIZE", 100),

		SetupStateTimeout:     durationOrDefault("SETUP_STATE_TIMEOUT", 30*time.Second),
		LoadingStateTimeout:   durationOrDefault("LOADING_STATE_TIMEOUT", 30*time.Second),
		CompletedStateTimeout: durationOrDefault("COMPLETED_STATE_TIMEOUT", 10*time.Second),
		ExceptionStateTimeout: durationOrDefault("EXCEPTION_STATE_TIMEOUT", 15*time.Second),

		CucumberGluePackages: splitCSV(envOrDefault("CUCUMBER_GLUE_PACKAGES", "")),
		ServicesTimeout:      durationOrDefault("SERVICES_TIMEOUT", 20*time.Second),
		DSLAskTimeout:        durationOrDefault("DSL_ASK_TIMEOUT", 5*time.Second),

		KafkaBootstrapServers:   envOrDefault("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		KafkaSchemaRegistryURL:  envOrDefault("KAFKA_SCHEMA_REGISTRY_URL", "http://localhost:8081"),
		KafkaOAuthTokenEndpoint: os.Getenv("KAFKA_OAUTH_TOKEN_ENDPOINT"),
		KafkaOAuthClientScope:   os.Getenv("KAFKA_OAUTH_CLIENT_SCOPE"),

		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),

		VaultAddr:    envOrDefault("VAULT_ADDR", "http://localhost:8200"),
		VaultKVMount: envOrDefault("VAULT_KV_MOUNT", "secret"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	result := cfg.Validate()
	if !result.OK() {
		return nil, result, fmt.Errorf("invalid configuration: %s", strings.Join(result.Errors, "; "))
	}
	return cfg, result, nil
}

// Validate runs every per-field and cross-field rule from spec §4.12,
// accumulating errors and warnings rather than failing fast.
func (c *Config) Validate() ValidationResult {
	var errs, warnings []string

	if c.MaxExecutionTime <= c.ActorSystemTimeout {
		errs = append(errs, "maxExecutionTime must be greater than actorSystemTimeout")
	}
	if c.CleanupDelay >= c.MaxExecutionTime {
		errs = append(errs, "cleanupDelay must be less than maxExecutionTime")
	}
	if c.SetupStateTimeout >= c.MaxExecutionTime {
		errs = append(errs, "setupStateTimeout must be less than maxExecutionTime")
	}
	if c.LoadingStateTimeout >= c.MaxExecutionTime {
		errs = append(errs, "loadingStateTimeout must be less than maxExecutionTime")
	}
	if c.CompletedStateTimeout >= c.MaxExecutionTime {
		errs = append(errs, "completedStateTimeout must be less than maxExecutionTime")
	}
	if c.ExceptionStateTimeout >= c.MaxExecutionTime {
		errs = append(errs, "exceptionStateTimeout must be less than maxExecutionTime")
	}
	if c.StashBufferSize < 1 || c.StashBufferSize > 10000 {
		errs = append(errs, "stashBufferSize must be in [1, 10000]")
	}
	if c.PoolSize < 1 {
		errs = append(errs, "poolSize must be >= 1")
	} else if c.PoolSize > 50 {
		warnings = append(warnings, fmt.Sprintf("poolSize %d exceeds the recommended maximum of 50", c.PoolSize))
	}
	if c.DSLAskTimeout < 100*time.Millisecond {
		errs = append(errs, "dslAskTimeout must be >= 100ms")
	} else if c.DSLAskTimeout > 30*time.Second {
		warnings = append(warnings, fmt.Sprintf("dslAskTimeout %s exceeds the recommended maximum of 30s", c.DSLAskTimeout))
	}
	if !strings.HasPrefix(c.KafkaSchemaRegistryURL, "http://") && !strings.HasPrefix(c.KafkaSchemaRegistryURL, "https://") {
		errs = append(errs, "kafka.schemaRegistryUrl must begin with http:// or https://")
	}
	if c.KafkaBootstrapServers == "" {
		errs = append(errs, "kafka.bootstrapServers is required")
	}

	if len(errs) > 0 {
		return validationFailure(errs, warnings)
	}
	return validationSuccess(warnings)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
