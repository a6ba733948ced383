// Package main runs the overdue-installment sweeper.
// It periodically marks pending installments past their due date as overdue
// across all open installment sales.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesdesk/internal/domain/installments"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/internal/infrastructure/cache"
	"salesdesk/internal/infrastructure/storage/postgres"
	"salesdesk/internal/infrastructure/storage/postgres/installment_repo"
	"salesdesk/internal/infrastructure/storage/postgres/sale_repo"
	"salesdesk/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	var signals revalidate.Invalidator = revalidate.Nop{}
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		client, err := cache.Connect(ctx, redisAddr)
		if err != nil {
			log.Warnw("redis unavailable, revalidation signals disabled", "error", err)
		} else {
			defer client.Close()
			signals = cache.NewPublisher(client)
		}
	}

	saleRepo := sale_repo.NewSaleRepo(txManager)
	installmentRepo := installment_repo.NewInstallmentRepo(txManager)
	service := installments.NewService(installmentRepo, saleRepo, txManager, signals, nil)

	interval := getEnvDuration("SWEEP_INTERVAL", 24*time.Hour)
	log.Infow("sweeper started", "interval", interval)

	sweep := func() {
		changed, err := service.SweepOverdue(ctx, time.Now().UTC())
		if err != nil {
			log.Errorw("overdue sweep failed", "error", err)
			return
		}
		log.Infow("overdue sweep finished", "changed", changed)
	}

	// Run once at startup, then on the ticker.
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
