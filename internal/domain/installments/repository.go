package installments

import (
	"context"
	"time"
)

// Repository is the storage contract for installment schedules.
//
// MarkPaid must be conditional on status <> 'paid' (report zero rows when the
// installment is already paid) so concurrent double-pay attempts cannot both
// succeed. The overdue updates are set-based and idempotent.
type Repository interface {
	// CreateBatch inserts a full schedule. Called once, atomically with the
	// owning sale.
	CreateBatch(ctx context.Context, schedule []Installment) error

	GetBySaleAndSeq(ctx context.Context, saleID int64, seq int) (Installment, error)
	ListBySale(ctx context.Context, saleID int64) ([]Installment, error)

	// MarkPaid transitions one installment to paid and stamps paid_at.
	// Returns apperror.NewAlreadyPaid when the row is already paid.
	MarkPaid(ctx context.Context, installmentID int64, paidAt time.Time) error

	// CountUnpaid returns how many installments of the sale are not yet paid.
	CountUnpaid(ctx context.Context, saleID int64) (int64, error)

	// DeleteUnpaid removes non-paid installments of a sale (cancellation
	// cleanup; paid installments are retained for audit).
	DeleteUnpaid(ctx context.Context, saleID int64) (int64, error)

	// MarkOverdueBySale transitions pending installments of one sale whose
	// due date is strictly before asOf. Returns the number changed.
	MarkOverdueBySale(ctx context.Context, saleID int64, asOf time.Time) (int64, error)

	// MarkOverdueAll does the same across all open installment sales.
	MarkOverdueAll(ctx context.Context, asOf time.Time) (int64, error)
}

// SaleStateStore is the minimal surface of the sales store the tracker needs
// to promote a fully-paid sale. Implemented by the sales repository.
type SaleStateStore interface {
	SaleStatus(ctx context.Context, saleID int64) (string, error)
	UpdateSaleStatus(ctx context.Context, saleID int64, status string) error
}

// Sale status values the tracker acts on. Mirrors the sales package values;
// kept as strings here so the tracker does not depend on the sales package.
const (
	salePendingInstallment = "pending_installment"
	saleCompleted          = "completed"
)
