package installments

import (
	"context"
	"fmt"
	"time"

	"salesdesk/internal/core/apperror"
	appctx "salesdesk/internal/core/context"
	"salesdesk/internal/core/tx"
	"salesdesk/internal/core/types"
	"salesdesk/internal/domain/audit"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/pkg/logger"
)

// Service tracks installment status: schedule creation, payments, overdue
// detection, and promotion of a fully-paid sale to completed.
type Service struct {
	repo      Repository
	sales     SaleStateStore
	txManager tx.Manager
	signals   revalidate.Invalidator
	auditor   audit.Recorder
}

// NewService creates a new installment tracker.
func NewService(repo Repository, sales SaleStateStore, txManager tx.Manager, signals revalidate.Invalidator, auditor audit.Recorder) *Service {
	if signals == nil {
		signals = revalidate.Nop{}
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		sales:     sales,
		txManager: txManager,
		signals:   signals,
		auditor:   auditor,
	}
}

// CreateSchedule builds and persists the schedule for an installment sale.
// Must run inside the sale orchestrator's transaction so the schedule commits
// atomically with the sale itself.
func (s *Service) CreateSchedule(ctx context.Context, saleID int64, saleDate time.Time, total types.Money, count int) ([]Installment, error) {
	schedule, err := BuildSchedule(saleID, saleDate, total, count)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateBatch(ctx, schedule); err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}

	logger.Info(ctx, "installment schedule created",
		"sale_id", saleID,
		"count", count,
		"total", total.String(),
	)

	return schedule, nil
}

// RemoveUnpaid deletes non-paid installments of a sale (cancellation cleanup).
// Paid installments are retained for audit. Must run inside the caller's
// transaction.
func (s *Service) RemoveUnpaid(ctx context.Context, saleID int64) error {
	removed, err := s.repo.DeleteUnpaid(ctx, saleID)
	if err != nil {
		return fmt.Errorf("delete unpaid installments: %w", err)
	}
	logger.Info(ctx, "unpaid installments removed", "sale_id", saleID, "removed", removed)
	return nil
}

// MarkPaid marks one installment of a sale as paid. When the last unpaid
// installment settles and the sale is still pending_installment, the sale is
// promoted to completed in the same transaction.
func (s *Service) MarkPaid(ctx context.Context, saleID int64, seq int) (Installment, error) {
	var paid Installment

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inst, err := s.repo.GetBySaleAndSeq(ctx, saleID, seq)
		if err != nil {
			return err
		}
		if inst.Status == StatusPaid {
			return apperror.NewAlreadyPaid(inst.ID)
		}

		now := time.Now().UTC()
		if err := s.repo.MarkPaid(ctx, inst.ID, now); err != nil {
			return err
		}
		inst.Status = StatusPaid
		inst.PaidAt = &now
		paid = inst

		remaining, err := s.repo.CountUnpaid(ctx, saleID)
		if err != nil {
			return fmt.Errorf("count unpaid: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		status, err := s.sales.SaleStatus(ctx, saleID)
		if err != nil {
			return fmt.Errorf("load sale status: %w", err)
		}
		if status != salePendingInstallment {
			return nil
		}
		if err := s.sales.UpdateSaleStatus(ctx, saleID, saleCompleted); err != nil {
			return fmt.Errorf("promote sale: %w", err)
		}
		logger.Info(ctx, "sale completed, all installments paid", "sale_id", saleID)
		return nil
	})
	if err != nil {
		return Installment{}, err
	}

	s.signals.Invalidate(ctx,
		revalidate.PathSales,
		revalidate.SalePath(saleID),
		revalidate.PathFinancials,
	)

	if err := s.auditor.Record(ctx, audit.Entry{
		EntityType: "sale",
		EntityID:   fmt.Sprintf("%d", saleID),
		Action:     audit.ActionPay,
		UserID:     appctx.GetUserID(ctx),
		Changes:    map[string]any{"seq": seq, "amount": paid.Amount.String()},
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}

	logger.Info(ctx, "installment paid", "sale_id", saleID, "seq", seq)
	return paid, nil
}

// DetectOverdue transitions pending installments of a sale whose due date is
// strictly before asOf to overdue. Idempotent: a second run with the same
// asOf changes nothing. Returns the number of installments changed.
func (s *Service) DetectOverdue(ctx context.Context, saleID int64, asOf time.Time) (int64, error) {
	changed, err := s.repo.MarkOverdueBySale(ctx, saleID, asOf)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}

	if changed > 0 {
		s.signals.Invalidate(ctx, revalidate.SalePath(saleID), revalidate.PathFinancials)
		logger.Info(ctx, "overdue installments detected",
			"sale_id", saleID,
			"changed", changed,
			"as_of", asOf,
		)
	}

	return changed, nil
}

// SweepOverdue runs overdue detection across all open installment sales.
// This is the periodic batch replacement for view-triggered detection, so
// sales nobody re-opens still go overdue on time.
func (s *Service) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	changed, err := s.repo.MarkOverdueAll(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("sweep overdue: %w", err)
	}

	if changed > 0 {
		s.signals.Invalidate(ctx, revalidate.PathSales, revalidate.PathFinancials)
	}

	logger.Info(ctx, "overdue sweep finished", "changed", changed, "as_of", asOf)
	return changed, nil
}

// ListBySale returns the schedule of a sale ordered by sequence.
func (s *Service) ListBySale(ctx context.Context, saleID int64) ([]Installment, error) {
	return s.repo.ListBySale(ctx, saleID)
}
