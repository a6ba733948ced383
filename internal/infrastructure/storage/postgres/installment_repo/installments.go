// Package installment_repo provides the PostgreSQL implementation of the
// installment schedule repository.
package installment_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/infrastructure/storage/postgres"
)

const installmentsTable = "installments"

var installmentColumns = []string{"id", "sale_id", "seq", "due_date", "amount", "status", "paid_at"}

// InstallmentRepo implements installments.Repository.
type InstallmentRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewInstallmentRepo creates a new installment repository.
func NewInstallmentRepo(txManager *postgres.TxManager) *InstallmentRepo {
	return &InstallmentRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateBatch inserts a full schedule.
func (r *InstallmentRepo) CreateBatch(ctx context.Context, schedule []installments.Installment) error {
	if len(schedule) == 0 {
		return nil
	}

	columns := []string{"sale_id", "seq", "due_date", "amount", "status"}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(schedule))
		for _, inst := range schedule {
			rows = append(rows, []any{inst.SaleID, inst.Seq, inst.DueDate, inst.Amount, inst.Status})
		}
		if _, err := inserter.CopyFromSlice(ctx, installmentsTable, columns, rows); err != nil {
			return apperror.NewPersistence(fmt.Errorf("copy installments: %w", err))
		}
		return nil
	}

	q := r.builder.Insert(installmentsTable).Columns(columns...)
	for _, inst := range schedule {
		q = q.Values(inst.SaleID, inst.Seq, inst.DueDate, inst.Amount, inst.Status)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert installments: %w", err))
	}

	return nil
}

// GetBySaleAndSeq retrieves one installment by its sale and sequence number.
func (r *InstallmentRepo) GetBySaleAndSeq(ctx context.Context, saleID int64, seq int) (installments.Installment, error) {
	var inst installments.Installment

	q := r.builder.Select(installmentColumns...).
		From(installmentsTable).
		Where(squirrel.Eq{"sale_id": saleID, "seq": seq}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return inst, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inst, apperror.NewNotFound("installment", fmt.Sprintf("sale %d seq %d", saleID, seq))
		}
		return inst, apperror.NewPersistence(fmt.Errorf("get installment: %w", err))
	}

	return inst, nil
}

// ListBySale returns the schedule of a sale ordered by sequence.
func (r *InstallmentRepo) ListBySale(ctx context.Context, saleID int64) ([]installments.Installment, error) {
	q := r.builder.Select(installmentColumns...).
		From(installmentsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("seq")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var schedule []installments.Installment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &schedule, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select installments: %w", err))
	}

	return schedule, nil
}

// MarkPaid transitions one installment to paid. The status guard runs inside
// the UPDATE so concurrent double-pay attempts cannot both succeed.
func (r *InstallmentRepo) MarkPaid(ctx context.Context, installmentID int64, paidAt time.Time) error {
	q := r.builder.Update(installmentsTable).
		Set("status", installments.StatusPaid).
		Set("paid_at", paidAt).
		Where(squirrel.Eq{"id": installmentID}).
		Where(squirrel.NotEq{"status": installments.StatusPaid})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("mark paid: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewAlreadyPaid(installmentID)
	}

	return nil
}

// CountUnpaid returns how many installments of the sale are not yet paid.
func (r *InstallmentRepo) CountUnpaid(ctx context.Context, saleID int64) (int64, error) {
	q := r.builder.Select("COUNT(*)").
		From(installmentsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(squirrel.NotEq{"status": installments.StatusPaid})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, apperror.NewPersistence(fmt.Errorf("count unpaid: %w", err))
	}

	return count, nil
}

// DeleteUnpaid removes non-paid installments of a sale.
func (r *InstallmentRepo) DeleteUnpaid(ctx context.Context, saleID int64) (int64, error) {
	q := r.builder.Delete(installmentsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(squirrel.NotEq{"status": installments.StatusPaid})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewPersistence(fmt.Errorf("delete unpaid: %w", err))
	}

	return tag.RowsAffected(), nil
}

// MarkOverdueBySale transitions pending installments of one sale whose due
// date is strictly before asOf. Set-based and idempotent.
func (r *InstallmentRepo) MarkOverdueBySale(ctx context.Context, saleID int64, asOf time.Time) (int64, error) {
	q := r.builder.Update(installmentsTable).
		Set("status", installments.StatusOverdue).
		Where(squirrel.Eq{"sale_id": saleID, "status": installments.StatusPending}).
		Where(squirrel.Lt{"due_date": asOf})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewPersistence(fmt.Errorf("mark overdue: %w", err))
	}

	return tag.RowsAffected(), nil
}

// MarkOverdueAll runs overdue detection across all open installment sales.
// Sales already cancelled or soft-deleted keep their installments untouched.
func (r *InstallmentRepo) MarkOverdueAll(ctx context.Context, asOf time.Time) (int64, error) {
	sql := `
		UPDATE installments i
		SET status = 'overdue'
		FROM sales s
		WHERE i.sale_id = s.id
		  AND s.deleted_at IS NULL
		  AND s.status = 'pending_installment'
		  AND i.status = 'pending'
		  AND i.due_date < $1
	`

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, asOf)
	if err != nil {
		return 0, apperror.NewPersistence(fmt.Errorf("mark overdue all: %w", err))
	}

	return tag.RowsAffected(), nil
}

// Ensure interface compliance.
var _ installments.Repository = (*InstallmentRepo)(nil)
