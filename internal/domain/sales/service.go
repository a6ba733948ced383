package sales

import (
	"context"
	"fmt"
	"time"

	"salesdesk/internal/core/apperror"
	appctx "salesdesk/internal/core/context"
	"salesdesk/internal/core/id"
	"salesdesk/internal/core/tx"
	"salesdesk/internal/core/types"
	"salesdesk/internal/domain"
	"salesdesk/internal/domain/audit"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/internal/domain/stock"
	"salesdesk/pkg/logger"
)

// StockLedger is the slice of the stock service the orchestrator uses.
type StockLedger interface {
	ApplyDelta(ctx context.Context, stockCode string, delta int64, movType stock.MovementType, saleID *int64, note string) (int64, error)
	ReverseForSale(ctx context.Context, saleID int64) error
}

// InstallmentPlanner is the slice of the installment service the orchestrator uses.
type InstallmentPlanner interface {
	CreateSchedule(ctx context.Context, saleID int64, saleDate time.Time, total types.Money, count int) ([]installments.Installment, error)
	RemoveUnpaid(ctx context.Context, saleID int64) error
	ListBySale(ctx context.Context, saleID int64) ([]installments.Installment, error)
}

// CreateSaleItem is one requested line at the creation boundary.
type CreateSaleItem struct {
	StockCode string
	Quantity  int64
	UnitPrice types.Money
	TaxRate   types.Money
}

// CreateSaleInput is the plain input structure for CreateSale.
type CreateSaleInput struct {
	CustomerID       *id.ID
	Date             *time.Time
	Items            []CreateSaleItem
	PaymentMethod    string
	IsInstallment    bool
	InstallmentCount int
	DiscountAmount   types.Money
	Comment          string
}

// Service is the sale orchestrator: the only component allowed to create a
// sale together with its stock movements and installment schedule as one
// unit, and the only one allowed to reverse a sale's effects.
type Service struct {
	repo      Repository
	ledger    StockLedger
	planner   InstallmentPlanner
	txManager tx.Manager
	signals   revalidate.Invalidator
	auditor   audit.Recorder
}

// NewService creates a new sale orchestrator.
func NewService(repo Repository, ledger StockLedger, planner InstallmentPlanner, txManager tx.Manager, signals revalidate.Invalidator, auditor audit.Recorder) *Service {
	if signals == nil {
		signals = revalidate.Nop{}
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		planner:   planner,
		txManager: txManager,
		signals:   signals,
		auditor:   auditor,
	}
}

// CreateSale persists the sale header, items, one negative stock movement per
// item, and (for installment sales) the installment schedule as a single
// transaction. No partial state is visible on failure: an insufficient-stock
// guard or storage error rolls everything back.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (*Sale, error) {
	sale := NewSale(input.CustomerID, input.PaymentMethod)
	if input.Date != nil {
		sale.Date = input.Date.UTC()
	}
	sale.IsInstallment = input.IsInstallment
	sale.InstallmentCount = input.InstallmentCount
	sale.Comment = input.Comment
	for _, item := range input.Items {
		sale.AddItem(item.StockCode, item.Quantity, item.UnitPrice, item.TaxRate)
	}
	sale.SetDiscount(input.DiscountAmount)

	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}

	if sale.IsInstallment {
		sale.Status = StatusPendingInstallment
	} else {
		sale.Status = StatusCompleted
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveItems(ctx, sale.ID, sale.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		for _, item := range sale.Items {
			if _, err := s.ledger.ApplyDelta(ctx, item.StockCode, -item.Quantity, stock.MovementSale, &sale.ID, ""); err != nil {
				return err
			}
		}

		if sale.IsInstallment {
			if _, err := s.planner.CreateSchedule(ctx, sale.ID, sale.Date, sale.FinalAmount, sale.InstallmentCount); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStockChanged(ctx, sale)

	s.recordAudit(ctx, sale.ID, audit.ActionCreate, map[string]any{
		"final_amount": sale.FinalAmount.String(),
		"status":       sale.Status,
		"items":        len(sale.Items),
	})

	logger.Info(ctx, "sale created",
		"sale_id", sale.ID,
		"status", sale.Status,
		"final_amount", sale.FinalAmount.String(),
		"is_installment", sale.IsInstallment,
	)

	return sale, nil
}

// CancelSale reverses every stock movement of the sale, removes the items and
// any non-paid installments, and soft-deletes the sale in one transaction.
// Paid installments are retained for audit.
func (s *Service) CancelSale(ctx context.Context, saleID int64) error {
	return s.reverseSale(ctx, saleID, StatusCancelled, true)
}

// RefundSale reverses the sale's stock effects like CancelSale but keeps the
// sale visible with status refunded.
func (s *Service) RefundSale(ctx context.Context, saleID int64) error {
	return s.reverseSale(ctx, saleID, StatusRefunded, false)
}

func (s *Service) reverseSale(ctx context.Context, saleID int64, target Status, softDelete bool) error {
	var sale *Sale

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = s.repo.GetByID(ctx, saleID, false)
		if err != nil {
			return err
		}

		// Claim the transition before touching stock. The conditional
		// update in storage arbitrates concurrent reversals: the loser
		// gets a conflict here and never reaches ReverseForSale.
		if err := s.repo.ClaimReversal(ctx, saleID, target); err != nil {
			return err
		}

		if err := s.ledger.ReverseForSale(ctx, saleID); err != nil {
			return err
		}

		if sale.IsInstallment {
			if err := s.planner.RemoveUnpaid(ctx, saleID); err != nil {
				return err
			}
		}

		if softDelete {
			if err := s.repo.DeleteItems(ctx, saleID); err != nil {
				return fmt.Errorf("delete items: %w", err)
			}
			if err := s.repo.SoftDelete(ctx, saleID); err != nil {
				return fmt.Errorf("soft delete: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.notifyStockChanged(ctx, sale)

	action := audit.ActionCancel
	if target == StatusRefunded {
		action = audit.ActionRefund
	}
	s.recordAudit(ctx, saleID, action, map[string]any{"from": sale.Status, "to": target})

	logger.Info(ctx, "sale reversed", "sale_id", saleID, "status", target)
	return nil
}

// UpdateStatus is the raw setter for non-side-effecting transitions.
// Transitions implying compensating actions (cancelled, refunded) are
// rejected here and must go through CancelSale/RefundSale so the
// stock-reversal invariant holds.
func (s *Service) UpdateStatus(ctx context.Context, saleID int64, newStatus Status) error {
	if !newStatus.Valid() {
		return apperror.NewValidation("unknown sale status").
			WithDetail("field", "status").
			WithDetail("value", newStatus)
	}
	if newStatus.Terminal() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"cancellation and refund must go through their dedicated operations").
			WithDetail("status", newStatus)
	}

	sale, err := s.repo.GetByID(ctx, saleID, false)
	if err != nil {
		return err
	}
	if sale.Status.Terminal() {
		return apperror.NewConflict("sale is in a terminal state").
			WithDetail("sale_id", saleID).
			WithDetail("status", sale.Status)
	}
	if sale.Status == newStatus {
		return apperror.NewConflict("status transition is a no-op").
			WithDetail("status", newStatus)
	}

	if err := s.repo.SetStatus(ctx, saleID, newStatus); err != nil {
		return err
	}

	s.signals.Invalidate(ctx, revalidate.PathSales, revalidate.SalePath(saleID))
	s.recordAudit(ctx, saleID, audit.ActionStatus, map[string]any{"from": sale.Status, "to": newStatus})

	logger.Info(ctx, "sale status updated", "sale_id", saleID, "from", sale.Status, "to", newStatus)
	return nil
}

// GetByID loads the sale header with its items and, for installment sales,
// the payment schedule.
func (s *Service) GetByID(ctx context.Context, saleID int64) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID, false)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	sale.Items = items

	if sale.IsInstallment {
		schedule, err := s.planner.ListBySale(ctx, saleID)
		if err != nil {
			return nil, fmt.Errorf("list installments: %w", err)
		}
		sale.Installments = schedule
	}

	return sale, nil
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) notifyStockChanged(ctx context.Context, sale *Sale) {
	if sale == nil {
		return
	}
	s.signals.Invalidate(ctx,
		revalidate.PathSales,
		revalidate.SalePath(sale.ID),
		revalidate.PathInventory,
		revalidate.PathFinancials,
	)
}

func (s *Service) recordAudit(ctx context.Context, saleID int64, action audit.Action, changes map[string]any) {
	err := s.auditor.Record(ctx, audit.Entry{
		EntityType: "sale",
		EntityID:   fmt.Sprintf("%d", saleID),
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    changes,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed", "sale_id", saleID, "error", err)
	}
}
