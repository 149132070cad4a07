package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/auditor"
	"github.com/feral-file/ff-drug-registry/internal/client"
	"github.com/feral-file/ff-drug-registry/internal/config"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/providers/jetstream"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAuditConsumerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Service:         "drug-audit-consumer",
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting drug registry audit consumer")

	jsonAdapter := adapter.NewJSON()
	l := ledger.New(jsonAdapter, adapter.NewJCS())

	var source auditor.EventSource
	if cfg.Backfill {
		source = client.New(client.Config{BaseURL: cfg.RegistryURL, MaxRetries: 5}, adapter.NewHTTPClient(cfg.HTTPTimeout), jsonAdapter)
	}
	a := auditor.New(l, source)

	if err := a.Bootstrap(ctx); err != nil {
		logger.Fatal("Failed to replay journal from registry", zap.Error(err), zap.String("url", cfg.RegistryURL))
	}

	sub, err := jetstream.NewSubscriber(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
		ConsumerName:   cfg.NATS.ConsumerName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		AckWait:        cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer sub.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx, sub)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err, zap.String("component", "consumer"))
		}
	}

	head, hash := a.Head()
	stats := a.Stats()
	logger.Info("Audit consumer stopped",
		zap.Uint64("head", head),
		zap.String("headHash", hash),
		zap.Uint64("applied", stats.Applied),
		zap.Uint64("backfilled", stats.Backfilled),
		zap.Uint64("duplicates", stats.Duplicates),
		zap.Uint64("rejected", stats.Rejected),
		zap.Uint64("brokenAt", stats.BrokenAt))
}
