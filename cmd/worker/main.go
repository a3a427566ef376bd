package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamepay/payments-worker/internal/config"
	eventkafka "github.com/gamepay/payments-worker/internal/event/kafka"
	"github.com/gamepay/payments-worker/internal/logging"
	"github.com/gamepay/payments-worker/internal/observability"
	"github.com/gamepay/payments-worker/internal/repository"
	"github.com/gamepay/payments-worker/internal/service"
	"github.com/gamepay/payments-worker/internal/service/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("payments-worker", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, "payments-worker", cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	obs := observability.New("payments-worker")

	apiClient := service.NewPaymentsAPIClient(
		cfg.PaymentsAPIBaseURL,
		cfg.PaymentsAPIInternalToken,
		cfg.PaymentsAPITimeout(),
		obs,
	)

	var store payment.Store = apiClient
	var db *sql.DB
	if cfg.StoreBackend == config.StoreBackendPostgres {
		db, err = connectDB(cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = repository.NewPaymentRepository(db, obs)
	}
	logger.Info("payment store configured", "backend", cfg.StoreBackend)

	publisher := eventkafka.NewEventPublisher(logger, cfg.KafkaBrokers, cfg.PaymentEventsTopic, cfg.PurchaseCompletedTopic)
	defer publisher.Close()

	dlq := eventkafka.NewDLQPublisher(logger, cfg.KafkaBrokers, cfg.DLQTopic)
	defer dlq.Close()

	svc := payment.NewService(store, apiClient, publisher, obs)

	creationConsumer := eventkafka.NewCreationConsumer(
		logger, cfg.KafkaBrokers, cfg.ConsumerGroupID, cfg.PurchaseRequestedTopic,
		svc, dlq, cfg.RetryMaxAttempts, cfg.RetryBackoffBase(),
	)
	processingConsumer := eventkafka.NewProcessingConsumer(
		logger, cfg.KafkaBrokers, cfg.ConsumerGroupID, cfg.PaymentProcessingTopic,
		svc, dlq, cfg.RetryMaxAttempts, cfg.RetryBackoffBase(),
	)

	var wg sync.WaitGroup
	for _, consumer := range []*eventkafka.Consumer{creationConsumer, processingConsumer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil {
				logger.Error("consumer exited", "error", err)
			}
		}()
	}

	srv := healthServer(cfg.HealthPort)
	go func() {
		logger.Info("health server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	wg.Wait()

	if err := creationConsumer.Close(); err != nil {
		logger.Error("failed to close creation consumer", "error", err)
	}
	if err := processingConsumer.Close(); err != nil {
		logger.Error("failed to close processing consumer", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}
	logger.Info("worker stopped")
}

func healthServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
