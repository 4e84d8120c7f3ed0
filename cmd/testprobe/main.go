package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/adapters/blockstorage"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/adapters/godogrunner"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/adapters/httpapi"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/adapters/vaultsecrets"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/kafkachild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/scenariochild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/storagechild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/children/vaultchild"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/codec"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/config"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/dsl"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/engine"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/registry"
)

func main() {
	cfg, validation, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	for _, warning := range validation.Warnings {
		logger.Warn("configuration warning", "message", warning)
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageAdapter, err := blockstorage.New(ctx)
	if err != nil {
		logger.Error("failed to build block storage adapter", "error", err)
		os.Exit(1)
	}

	vaultClient, err := vaultapi.NewClient(&vaultapi.Config{Address: cfg.VaultAddr})
	if err != nil {
		logger.Error("failed to build vault client", "error", err)
		os.Exit(1)
	}
	vaultAdapter := vaultsecrets.New(vaultClient, cfg.VaultKVMount)

	storageChild := storagechild.New(storageAdapter)
	vaultChild := vaultchild.New(vaultAdapter)

	facade := dsl.New(cfg.DSLAskTimeout)
	scenarioChild := scenariochild.New(godogrunner.New(facade))

	schemaRegistryCodec := codec.New(cfg.KafkaSchemaRegistryURL, cfg.MaxRetries, metrics)

	// Every test run gets its own Engine and its own kafkachild.Supervisor;
	// storage, vault, and the scenario runner are shared across runs since
	// they carry no per-test state of their own.
	newEngine := func(testID domain.TestID) registry.Engine {
		kafka := kafkachild.New(testID, cfg.KafkaBootstrapServers, schemaRegistryCodec, logger, metrics, facade)
		return engine.New(testID, cfg, storageChild, vaultChild, kafka, scenarioChild, logger, metrics, nil)
	}

	reg := registry.New(newEngine)
	srv := httpapi.NewServer(cfg.HTTPAddr, reg, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	for _, id := range reg.ListActive() {
		if err := reg.Delete(shutdownCtx, id); err != nil {
			logger.Warn("failed to delete test during shutdown", "test_id", id, "error", err)
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
