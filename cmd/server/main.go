package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	enrollhandler "enrolld/internal/enrollment/handler"
	enrollmetrics "enrolld/internal/enrollment/metrics"
	"enrolld/internal/enrollment/service"
	"enrolld/internal/enrollment/store"
	memorystore "enrolld/internal/enrollment/store/memory"
	postgresstore "enrolld/internal/enrollment/store/postgres"
	redisstore "enrolld/internal/enrollment/store/redis"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/httpserver"
	"enrolld/internal/platform/logger"
	platformmetrics "enrolld/internal/platform/metrics"
	"enrolld/internal/platform/middleware"
	"enrolld/internal/platform/postgres"
	platformredis "enrolld/internal/platform/redis"
	"enrolld/internal/reconcile"
	synchandler "enrolld/internal/reconcile/handler"
	syncmetrics "enrolld/internal/reconcile/metrics"
	"enrolld/internal/surveyor"
	surveyorhandler "enrolld/internal/surveyor/handler"
	"enrolld/internal/token"
	audit "enrolld/pkg/platform/audit"
	auditkafka "enrolld/pkg/platform/audit/kafka"
	auditmemory "enrolld/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordStore, cleanup, err := buildRecordStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize record store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	auditStore, auditCleanup, err := buildAuditStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize audit sink", "error", err)
		os.Exit(1)
	}
	defer auditCleanup()
	auditor := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(256))
	defer auditor.Close()

	tokens := token.NewService(cfg.JWTSigningKey, "enrolld")
	surveyorService := surveyor.NewService(surveyor.NewMemoryStore(), tokens, cfg.TokenTTL, auditor, log)
	if err := surveyor.Seed(ctx, surveyorService, cfg.BootstrapUsername, cfg.BootstrapFullName, cfg.BootstrapPassword, log); err != nil {
		log.Error("failed to provision bootstrap surveyor", "error", err)
		os.Exit(1)
	}

	enrollService := service.NewService(recordStore, auditor, enrollmetrics.New(), log)

	authority := reconcile.NewHTTPAuthority(cfg.AuthorityURL, cfg.AuthorityAPIKey, cfg.AuthorityTimeout)
	policy := reconcile.RetryPolicy{
		MaxAttempts: cfg.SyncMaxAttempts,
		MinInterval: cfg.SyncMinInterval,
	}
	reconciler := reconcile.New(recordStore, authority, authority, policy, syncmetrics.New(), auditor, log)

	router := buildRouter(cfg, log, platformmetrics.New(), tokens, enrollService, reconciler, surveyorService)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting enrolld", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("enrolld stopped")
}

// buildRecordStore picks the queue backend: Postgres when configured, then
// Redis, then in-memory for local development.
func buildRecordStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st := postgresstore.New(db)
		if err := st.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("using postgres record store")
		return st, func() { db.Close() }, nil
	}
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis record store")
		return redisstore.New(client.Client), func() { _ = client.Close() }, nil
	}
	log.Warn("using in-memory record store; queued records will not survive restarts")
	return memorystore.New(), func() {}, nil
}

// buildAuditStore picks the audit sink: Kafka when brokers are configured,
// in-memory otherwise.
func buildAuditStore(cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		log.Info("publishing audit events to kafka", "topic", cfg.KafkaTopic)
		return sink, sink.Close, nil
	}
	return auditmemory.NewInMemoryStore(), func() {}, nil
}

func buildRouter(
	cfg config.Config,
	log *slog.Logger,
	httpMetrics *platformmetrics.Metrics,
	tokens *token.Service,
	enrollService *service.Service,
	reconciler *reconcile.Reconciler,
	surveyorService *surveyor.Service,
) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Observe(httpMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	surveyorhandler.New(surveyorService, log).Register(router)

	// Everything a surveyor device calls requires a valid token.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(token.NewMiddlewareAdapter(tokens), log))
		enrollhandler.New(enrollService, log, cfg.SyncMaxAttempts).Register(r)
		synchandler.New(reconciler, log).Register(r)
	})
	return router
}
