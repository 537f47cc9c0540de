// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the keygate HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the account store (PostgreSQL with migrations, or memory).
//  4. Open the refresh family store (Redis, or memory).
//  5. Build the token signer (HS256 secret or RS256 key pair).
//  6. Wire metrics, services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/keygate/internal/api"
	"github.com/taibuivan/keygate/internal/assist"
	"github.com/taibuivan/keygate/internal/platform/config"
	"github.com/taibuivan/keygate/internal/platform/constants"
	"github.com/taibuivan/keygate/internal/platform/metrics"
	"github.com/taibuivan/keygate/internal/platform/middleware"
	"github.com/taibuivan/keygate/internal/platform/migration"
	pgstore "github.com/taibuivan/keygate/internal/platform/postgres"
	redisstore "github.com/taibuivan/keygate/internal/platform/redis"
	"github.com/taibuivan/keygate/internal/platform/sec"
	"github.com/taibuivan/keygate/internal/users/admin"
	"github.com/taibuivan/keygate/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
		slog.Bool("rsa_signing", cfg.UsesRSA()),
	)

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer startupCancel()

	var (
		closers []func()
		checks  = api.HealthDependencies{}
	)

	// ── 3. Account Store ──────────────────────────────────────────────────
	var users auth.UserRepository
	switch cfg.StoreBackend {
	case config.StorePostgres:
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		closers = append(closers, func() {
			log.Info("postgres_pool_closing")
			pool.Close()
		})
		checks["postgres"] = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
		users = auth.NewUserRepository(pool)
	default:
		log.Warn("memory_user_store_enabled")
		users = auth.NewMemoryUserRepository()
	}

	// ── 4. Refresh Family Store ───────────────────────────────────────────
	var families auth.FamilyRepository
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		closers = append(closers, func() {
			log.Info("redis_client_closing")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		})
		checks["redis"] = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
		families = auth.NewFamilyRepository(rdb)
	} else {
		log.Warn("memory_family_store_enabled")
		families = auth.NewMemoryFamilyRepository()
	}

	// ── 5. Token Signer ───────────────────────────────────────────────────
	var signer *sec.TokenSigner
	if cfg.UsesRSA() {
		signer, err = sec.NewRSASigner(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, cfg.JWTIssuer)
	} else {
		signer, err = sec.NewHMACSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	}
	must(log, err, "initialize token signer")

	hasher, err := sec.NewPasswordHasher(cfg.BcryptCost)
	must(log, err, "initialize password hasher")

	// ── 6. Metrics & Domain Wiring ────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collected := metrics.New(registry)

	tokenService := auth.NewTokenService(signer, users, families, cfg.AccessTTL, cfg.RefreshTTL)
	authService := auth.NewService(users, tokenService, hasher, sec.NewAPIKeyGenerator(cfg.APIKeyPrefix),
		auth.WithAdminEmails(cfg.AdminEmails...),
		auth.WithObserver(collected),
	)
	gate := middleware.NewGate(tokenService, authService, collected)

	invoker := assist.NewChatInvoker(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel)
	if !invoker.Enabled() {
		log.Warn("llm_endpoint_not_configured")
	}

	liveness, readiness := api.NewHealthHandlers(checks, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	runCtx, stopBackground := context.WithCancel(context.Background())
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxyHeaders)
	go limiter.Run(runCtx)

	server := api.NewServer(cfg, log, api.Infrastructure{
		Limiter: limiter,
		Metrics: collected,
	}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth:      auth.NewHandler(authService, gate),
		Admin:     admin.NewHandler(authService, gate),
		Assist:    assist.NewHandler(assist.NewPlainTextProcessor(), invoker, gate, cfg.UploadMaxBytes),
	})

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_listen_failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Stores close only after in-flight requests have drained.
	wait := gfshutdown.GracefulShutdown(context.Background(), constants.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http_server": func(ctx context.Context) error {
			log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
			stopBackground()
			err := server.Shutdown(ctx)
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return err
		},
	})

	exitCode := <-wait
	log.Info("server_stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
