package stock

import (
	"context"
	"time"
)

// EntryFilter narrows entry listings.
type EntryFilter struct {
	// LowOnly keeps entries with quantity <= min_quantity.
	LowOnly bool

	Search string
	Limit  int
	Offset int
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	Type     *MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository is the storage contract for the stock ledger.
//
// ApplyDelta is the atomically-checked decrement the concurrency model
// requires: the quantity guard runs inside the UPDATE itself, never as an
// application-level read-then-write. Implementations return
// apperror.NewInsufficientStock when the guard fails and apperror.NewNotFound
// when no entry exists for the code.
type Repository interface {
	// ApplyDelta adds delta (signed) to the entry's quantity if the result
	// stays non-negative, and returns the new quantity.
	ApplyDelta(ctx context.Context, stockCode string, delta int64) (int64, error)

	// InsertMovements appends movement records. Movements are immutable.
	InsertMovements(ctx context.Context, movements []Movement) error

	GetEntry(ctx context.Context, stockCode string) (Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)

	MovementsByStockCode(ctx context.Context, stockCode string, filter MovementFilter) ([]Movement, error)

	// MovementsBySale returns the movements a sale produced, optionally
	// filtered by type (nil means all).
	MovementsBySale(ctx context.Context, saleID int64, movType *MovementType) ([]Movement, error)
}
