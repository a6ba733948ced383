package stock

import (
	"context"
	"fmt"

	"salesdesk/internal/core/apperror"
	appctx "salesdesk/internal/core/context"
	"salesdesk/internal/core/tx"
	"salesdesk/internal/domain/audit"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/pkg/logger"
)

// Service provides the signed-delta interface to the stock ledger.
// ApplyDelta and ReverseForSale leave transactions to the caller (the sale
// orchestrator runs ledger mutations inside its own transaction boundary);
// Adjust is a standalone operation and opens its own.
type Service struct {
	repo      Repository
	txManager tx.Manager
	signals   revalidate.Invalidator
	auditor   audit.Recorder
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txManager tx.Manager, signals revalidate.Invalidator, auditor audit.Recorder) *Service {
	if signals == nil {
		signals = revalidate.Nop{}
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		signals:   signals,
		auditor:   auditor,
	}
}

// ApplyDelta applies a signed quantity change and records the movement.
// Returns the new on-hand quantity. Fails with INSUFFICIENT_STOCK when the
// change would drive the quantity negative, with NOT_FOUND when no entry
// exists for the code.
func (s *Service) ApplyDelta(ctx context.Context, stockCode string, delta int64, movType MovementType, saleID *int64, note string) (int64, error) {
	movement := NewMovement(stockCode, delta, movType, saleID, note)
	if err := movement.Validate(ctx); err != nil {
		return 0, err
	}

	newQty, err := s.repo.ApplyDelta(ctx, stockCode, delta)
	if err != nil {
		return 0, err
	}

	if err := s.repo.InsertMovements(ctx, []Movement{movement}); err != nil {
		return 0, fmt.Errorf("record movement: %w", err)
	}

	logger.Info(ctx, "stock delta applied",
		"stock_code", stockCode,
		"delta", delta,
		"movement_type", movType,
		"new_quantity", newQty,
	)

	return newQty, nil
}

// ReverseForSale applies an equal-and-opposite sale_return movement for every
// sale movement the given sale produced. The original movements are kept as
// audit trail. Must run inside the caller's transaction.
func (s *Service) ReverseForSale(ctx context.Context, saleID int64) error {
	saleType := MovementSale
	movements, err := s.repo.MovementsBySale(ctx, saleID, &saleType)
	if err != nil {
		return fmt.Errorf("load sale movements: %w", err)
	}

	for _, m := range movements {
		if _, err := s.ApplyDelta(ctx, m.StockCode, -m.Delta, MovementSaleReturn, &saleID, "sale reversal"); err != nil {
			return fmt.Errorf("reverse movement %s: %w", m.LineID, err)
		}
	}

	logger.Info(ctx, "stock reversed for sale",
		"sale_id", saleID,
		"movements", len(movements),
	)

	return nil
}

// Adjust applies a manual correction (count, damage, intake) in its own
// transaction, then signals inventory views and records an audit entry.
func (s *Service) Adjust(ctx context.Context, stockCode string, delta int64, note string) (int64, error) {
	var newQty int64

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		newQty, err = s.ApplyDelta(ctx, stockCode, delta, MovementAdjustment, nil, note)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.signals.Invalidate(ctx, revalidate.PathInventory)

	if err := s.auditor.Record(ctx, audit.Entry{
		EntityType: "stock_entry",
		EntityID:   stockCode,
		Action:     audit.ActionAdjust,
		UserID:     appctx.GetUserID(ctx),
		Changes:    map[string]any{"delta": delta, "note": note, "new_quantity": newQty},
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "stock_code", stockCode, "error", err)
	}

	return newQty, nil
}

// GetEntry returns the on-hand entry for a stock code.
func (s *Service) GetEntry(ctx context.Context, stockCode string) (Entry, error) {
	if stockCode == "" {
		return Entry{}, apperror.NewValidation("stock code is required")
	}
	return s.repo.GetEntry(ctx, stockCode)
}

// ListEntries returns stock entries, optionally only those at or below their
// minimum threshold.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListEntries(ctx, filter)
}

// MovementHistory returns the movement history for a stock code.
func (s *Service) MovementHistory(ctx context.Context, stockCode string, filter MovementFilter) ([]Movement, error) {
	if stockCode == "" {
		return nil, apperror.NewValidation("stock code is required")
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.MovementsByStockCode(ctx, stockCode, filter)
}
