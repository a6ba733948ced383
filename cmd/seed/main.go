// Package main seeds a development database with demo inventory and
// prints a bcrypt hash for the operator password.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"salesdesk/internal/infrastructure/storage/postgres"
	"salesdesk/pkg/logger"
)

type demoEntry struct {
	stockCode   string
	name        string
	quantity    int64
	minQuantity int64
}

var demoEntries = []demoEntry{
	{"TBL-OAK-120", "Oak dining table 120cm", 8, 2},
	{"CHR-OAK-STD", "Oak chair", 42, 10},
	{"SOF-GRY-3S", "Grey sofa, 3 seats", 5, 1},
	{"BED-PNE-160", "Pine bed frame 160cm", 6, 2},
	{"MTR-MEM-160", "Memory foam mattress 160cm", 12, 3},
	{"WRD-WHT-200", "White wardrobe 200cm", 4, 1},
	{"DSK-WAL-140", "Walnut desk 140cm", 9, 2},
	{"SHL-BLK-5T", "Black shelf, 5 tiers", 15, 4},
}

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if password := os.Getenv("OPERATOR_PASSWORD"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalw("failed to hash operator password", "error", err)
		}
		fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Info("DATABASE_URL not set, skipping inventory seed")
		return
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	const upsert = `
		INSERT INTO stock_entries (stock_code, name, quantity, min_quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stock_code) DO UPDATE
		SET name = EXCLUDED.name, min_quantity = EXCLUDED.min_quantity`

	for _, e := range demoEntries {
		if _, err := pool.Exec(ctx, upsert, e.stockCode, e.name, e.quantity, e.minQuantity); err != nil {
			log.Fatalw("failed to seed stock entry", "stock_code", e.stockCode, "error", err)
		}
	}

	log.Infow("inventory seeded", "entries", len(demoEntries))
}
