// Package main provides the relay server executable: the message relay with
// its HTTP status API and Prometheus metrics.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	"github.com/RCK777-BALL/WorkPro3-sub006/adapters/file"
	"github.com/RCK777-BALL/WorkPro3-sub006/adapters/mqtt"
	relaymetrics "github.com/RCK777-BALL/WorkPro3-sub006/adapters/prometheus"
	"github.com/RCK777-BALL/WorkPro3-sub006/adapters/relica"
	"github.com/RCK777-BALL/WorkPro3-sub006/adapters/zaplog"
	"github.com/RCK777-BALL/WorkPro3-sub006/cmd/relay-server/internal/api"
	"github.com/RCK777-BALL/WorkPro3-sub006/cmd/relay-server/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("relay-server: %v", err)
	}
}

func run() error {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zaplog.NewProduction(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Infof("Starting relay server (enabled=%t, brokers=%v, queue limit=%d)",
		cfg.Relay.Enabled, cfg.Broker.URLs, cfg.Relay.QueueLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Prometheus registry with process and Go collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := relaymetrics.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	store := file.NewQueueStore(cfg.Broker.StateFile)
	logger.Infof("Retry queue snapshot: %s", store.Path())

	opts := []relay.Option{
		relay.WithLogger(logger.With("component", "relay")),
		relay.WithConfig(cfg.Relay),
		relay.WithStateStore(store),
		relay.WithNotifications(relay.NotificationFanout{
			relay.NewLoggingNotificationService(logger),
			metrics,
		}),
	}

	// Optional durable dead-letter sink
	if cfg.Database.DeadLetterSinkEnabled() {
		db, err := openDatabase(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Errorf("Failed to close database: %v", closeErr)
			}
		}()
		repo := relica.NewDeadLetterRepositoryWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
		opts = append(opts, relay.WithDeadLetterRepository(repo))
		logger.Infof("Dead-letter sink enabled (%s)", cfg.Database.Driver)
	}

	if cfg.Relay.Enabled {
		broker, err := mqtt.New(mqtt.Config{
			Brokers:     cfg.Broker.URLs,
			ClientID:    cfg.Broker.ClientID,
			TopicPrefix: cfg.Broker.TopicPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to create broker: %w", err)
		}
		opts = append(opts, relay.WithBroker(broker))
	}

	service, err := relay.NewService(opts...)
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	if err := relaymetrics.RegisterHealth(registry, service.Health); err != nil {
		return fmt.Errorf("failed to register health metrics: %w", err)
	}

	for _, topic := range cfg.Broker.SubscribeTopics {
		if err := service.Subscribe(ctx, topic, logInbound(logger)); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}
	defer func() {
		if closeErr := service.Close(); closeErr != nil {
			logger.Errorf("Failed to close relay: %v", closeErr)
		}
	}()

	// Setup HTTP routes
	mux := http.NewServeMux()
	api.NewHandler(service, logger.With("component", "api")).Routes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// openDatabase connects to the dead-letter database and applies migrations.
func openDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := relica.ApplyMigrations(ctx, db, cfg.Driver, cfg.Prefix); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// logInbound returns a listener that logs every inbound message.
func logInbound(logger relay.Logger) relay.Listener {
	return func(_ context.Context, topic string, payload json.RawMessage) {
		logger.Infof("Inbound message on %s (%d bytes)", topic, len(payload))
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger relay.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
