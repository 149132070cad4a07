package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/api/middleware"
	"github.com/feral-file/ff-drug-registry/internal/api/rest"
	"github.com/feral-file/ff-drug-registry/internal/api/server"
	"github.com/feral-file/ff-drug-registry/internal/config"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
	"github.com/feral-file/ff-drug-registry/internal/metrics"
	"github.com/feral-file/ff-drug-registry/internal/notifier"
	"github.com/feral-file/ff-drug-registry/internal/providers/jetstream"
	"github.com/feral-file/ff-drug-registry/internal/pubsub"
	"github.com/feral-file/ff-drug-registry/internal/ratelimit"
	"github.com/feral-file/ff-drug-registry/internal/registry"
	"github.com/feral-file/ff-drug-registry/internal/store"
	"github.com/feral-file/ff-drug-registry/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
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
		Service:         "drug-registry-api",
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting drug registry API")

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	m := metrics.New()
	l := ledger.New(jsonAdapter, adapter.NewJCS())

	dataStore := openStore(ctx, cfg, l)

	// Fan-out: in-process broker for SSE, JetStream and webhooks when configured
	broker := pubsub.NewBroker[domain.RegistrationEvent]()
	sinks := []notifier.Sink{notifier.NewBrokerSink(broker)}

	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstreamConfig(cfg.NATS), adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		sinks = append(sinks, notifier.NewPublisherSink("jetstream", publisher))
		logger.InfoCtx(ctx, "Publishing registrations to JetStream", zap.String("stream", cfg.NATS.StreamName))
	} else {
		logger.WarnCtx(ctx, "NATS URL not configured, registrations will not be published to JetStream")
	}

	var webhookSink *webhook.Sink
	if len(cfg.Webhook.URLs) > 0 {
		webhookSink = webhook.NewSink(webhook.Config{
			URLs:                 cfg.Webhook.URLs,
			Secret:               cfg.Webhook.Secret,
			MaxRetries:           cfg.Webhook.MaxRetries,
			RetryInitialInterval: cfg.Webhook.RetryInitialInterval,
			Workers:              cfg.Webhook.Workers,
		}, adapter.NewHTTPClient(cfg.Webhook.Timeout), clock)
		sinks = append(sinks, webhookSink)
		logger.InfoCtx(ctx, "Delivering registrations to webhooks", zap.Int("endpoints", len(cfg.Webhook.URLs)))
	}

	dispatcher := notifier.New(sinks, cfg.Notifier.QueueSize, m)
	dispatcher.Start(ctx)

	reg := registry.New(dataStore, l, dispatcher, clock, m)
	total, err := reg.Total(ctx)
	if err != nil {
		logger.Fatal("Failed to count registered drugs", zap.Error(err))
	}
	m.SetRecords(total)
	logger.InfoCtx(ctx, "Registry ready", zap.Uint64("records", total))

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           cfg.RateLimit.IdleTTL,
		}, clock)
		if err != nil {
			logger.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		serverConfig.RateLimiter = limiter
	}
	authConfig := middleware.AuthConfig{
		JWTPublicKey:  cfg.Auth.JWTPublicKey,
		WalletMaxSkew: cfg.Auth.WalletMaxSkew,
		Now:           clock.Now,
	}

	srv := server.New(serverConfig, rest.NewHandler(reg, broker, clock, cfg.Server.StreamKeepAlive), authConfig, m.Handler())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Don't reuse ctx for shutdown; it is cancelled below
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	// Close the broker first so open event streams end and the server can drain
	broker.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("message", "Server forced to shutdown"))
	}

	// Drain queued notifications before tearing down their sinks
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("message", "Notification queues not drained"))
	}
	cancel()
	if webhookSink != nil {
		webhookSink.Close()
	}
	if publisher != nil {
		publisher.Close()
	}

	logger.Info("API server stopped")
}

// openStore builds the configured record store, wrapping it with the read cache when enabled
func openStore(ctx context.Context, cfg *config.APIConfig, sealer store.Sealer) store.Store {
	var dataStore store.Store

	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}

		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.Fatal("Failed to configure connection pool", zap.Error(err))
		}
		if err := store.InitSchema(ctx, db); err != nil {
			logger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)

		dataStore = store.NewPGStore(db, sealer)
	default:
		logger.WarnCtx(ctx, "Using in-memory store, records are lost on restart")
		dataStore = store.NewMemoryStore(sealer)
	}

	if cfg.Cache.Enabled {
		dataStore = store.NewCachedStore(dataStore, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
		logger.InfoCtx(ctx, "Read cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	return dataStore
}

func jetstreamConfig(c config.NATSConfig) jetstream.Config {
	return jetstream.Config{
		URL:            c.URL,
		StreamName:     c.StreamName,
		SubjectPrefix:  c.SubjectPrefix,
		ConsumerName:   c.ConsumerName,
		MaxReconnects:  c.MaxReconnects,
		ReconnectWait:  c.ReconnectWait,
		ConnectionName: c.ConnectionName,
		AckWait:        c.AckWait,
		MaxDeliver:     c.MaxDeliver,
	}
}
