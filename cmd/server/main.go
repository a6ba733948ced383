// Package main is the entry point for the salesdesk API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"salesdesk/internal/domain/auth"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/internal/infrastructure/cache"
	v1 "salesdesk/internal/infrastructure/http/v1"
	"salesdesk/internal/infrastructure/storage/postgres"
	"salesdesk/migrations"
	"salesdesk/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting salesdesk server")

	// --- Database connection ---
	dsn := mustEnv("DATABASE_URL")

	if getEnv("RUN_MIGRATIONS", "false") == "true" {
		if err := runMigrations(dsn); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Revalidation signals (optional) ---
	var signals revalidate.Invalidator = revalidate.Nop{}
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		client, err := cache.Connect(ctx, redisAddr)
		if err != nil {
			log.Warnw("redis unavailable, revalidation signals disabled", "error", err)
		} else {
			defer client.Close()
			signals = cache.NewPublisher(client)
			log.Infow("redis connected", "addr", redisAddr)
		}
	}

	// --- Audit sink ---
	auditSink, err := postgres.NewAuditSink(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit sink", "error", err)
	}

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	var authService *auth.Service
	if name, hash := getEnv("OPERATOR_NAME", ""), getEnv("OPERATOR_PASSWORD_HASH", ""); name != "" && hash != "" {
		authService = auth.NewService([]auth.Operator{
			{ID: "1", Name: name, PasswordHash: hash},
		}, jwtService)
	} else {
		log.Warn("OPERATOR_NAME/OPERATOR_PASSWORD_HASH not set, login endpoint disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:         pool,
		TxManager:    txManager,
		Logger:       log,
		JWTValidator: jwtService,
		AuthService:  authService,
		Signals:      signals,
		Auditor:      auditSink,
		AuditSink:    auditSink,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.Up(db, ".")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
