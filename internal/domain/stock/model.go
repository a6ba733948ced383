// Package stock provides the stock ledger: the authoritative on-hand quantity
// per product, mutated only through signed quantity-change operations.
package stock

import (
	"context"
	"time"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/id"
)

// MovementType classifies the business event behind a quantity change.
type MovementType string

const (
	// MovementSale decreases stock when a sale is created.
	MovementSale MovementType = "sale"
	// MovementSaleReturn restores stock when a sale is cancelled or refunded.
	MovementSaleReturn MovementType = "sale_return"
	// MovementAdjustment covers manual corrections (count, damage, intake).
	MovementAdjustment MovementType = "adjustment"
)

// Valid reports whether the movement type is one of the defined values.
func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementSaleReturn, MovementAdjustment:
		return true
	}
	return false
}

// Entry is the on-hand quantity record for a product.
// Callers outside the ledger never write Quantity directly.
type Entry struct {
	StockCode   string    `db:"stock_code" json:"stockCode"`
	Name        string    `db:"name" json:"name"`
	Quantity    int64     `db:"quantity" json:"quantity"`
	MinQuantity int64     `db:"min_quantity" json:"minQuantity"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Low reports whether on-hand quantity is at or below the minimum threshold.
func (e Entry) Low() bool {
	return e.Quantity <= e.MinQuantity
}

// Movement is an immutable record of a single quantity change.
// Movements are append-only: never updated or deleted, and they outlive a
// cancelled sale as an audit trail.
type Movement struct {
	LineID    id.ID        `db:"line_id" json:"lineId"`
	StockCode string       `db:"stock_code" json:"stockCode"`
	Delta     int64        `db:"delta" json:"delta"`
	Type      MovementType `db:"movement_type" json:"movementType"`
	SaleID    *int64       `db:"sale_id" json:"saleId,omitempty"`
	Note      string       `db:"note" json:"note,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement record with generated LineID.
func NewMovement(stockCode string, delta int64, movType MovementType, saleID *int64, note string) Movement {
	return Movement{
		LineID:    id.New(),
		StockCode: stockCode,
		Delta:     delta,
		Type:      movType,
		SaleID:    saleID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks movement invariants.
func (m Movement) Validate(ctx context.Context) error {
	if m.StockCode == "" {
		return apperror.NewValidation("stock code is required").
			WithDetail("field", "stockCode")
	}
	if m.Delta == 0 {
		return apperror.NewValidation("delta must be non-zero").
			WithDetail("field", "delta")
	}
	if !m.Type.Valid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(m.Type))
	}
	return nil
}
