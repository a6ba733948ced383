// Package report_repo provides read-only aggregated queries for reporting.
// Reports use raw SQL: the aggregations do not fit the query builder well.
package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/reports"
	"salesdesk/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

// SalesRegister returns one row per active sale in the period, with item
// counts and the amount actually settled so far. For non-installment completed
// sales the settled amount is the full final amount; for installment sales it
// is the sum of paid installments.
func (r *ReportRepo) SalesRegister(ctx context.Context, filter reports.Filter) ([]reports.RegisterRow, error) {
	sql := `
		SELECT
			s.id AS sale_id,
			s.date,
			s.status,
			s.payment_method,
			COALESCE(it.item_count, 0) AS item_count,
			s.subtotal,
			s.discount_amount,
			s.tax_amount,
			s.final_amount,
			CASE
				WHEN s.is_installment THEN COALESCE(pi.paid_amount, 0)
				WHEN s.status = 'completed' THEN s.final_amount
				ELSE 0
			END AS paid_amount
		FROM sales s
		LEFT JOIN (
			SELECT sale_id, COUNT(*) AS item_count
			FROM sale_items
			GROUP BY sale_id
		) it ON it.sale_id = s.id
		LEFT JOIN (
			SELECT sale_id, SUM(amount) AS paid_amount
			FROM installments
			WHERE status = 'paid'
			GROUP BY sale_id
		) pi ON pi.sale_id = s.id
		WHERE s.deleted_at IS NULL
	`

	args := make([]any, 0, 2)
	argIndex := 1

	if filter.DateFrom != nil {
		sql += fmt.Sprintf(" AND s.date >= $%d", argIndex)
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		sql += fmt.Sprintf(" AND s.date <= $%d", argIndex)
		args = append(args, *filter.DateTo)
	}

	sql += " ORDER BY s.date DESC, s.id DESC"

	var rows []reports.RegisterRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select register: %w", err))
	}

	return rows, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*ReportRepo)(nil)
