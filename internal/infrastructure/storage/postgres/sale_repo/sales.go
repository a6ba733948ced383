// Package sale_repo provides the PostgreSQL implementation of the sale
// aggregate repository.
package sale_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/domain/sales"
	"salesdesk/internal/infrastructure/storage/postgres"
)

const (
	salesTable = "sales"
	itemsTable = "sale_items"
)

var saleColumns = []string{
	"id", "customer_id", "date",
	"subtotal", "discount_amount", "tax_amount", "final_amount",
	"payment_method", "status", "is_installment", "installment_count",
	"comment", "created_at", "updated_at", "deleted_at", "version",
}

// SaleRepo implements sales.Repository and the sale-state view the
// installment tracker needs.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// active is the soft-delete predicate, applied in one place.
func active() squirrel.Sqlizer {
	return squirrel.Eq{"deleted_at": nil}
}

// Create inserts the sale header and assigns sale.ID.
func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	q := r.builder.Insert(salesTable).
		Columns(
			"customer_id", "date",
			"subtotal", "discount_amount", "tax_amount", "final_amount",
			"payment_method", "status", "is_installment", "installment_count",
			"comment", "created_at", "updated_at", "version",
		).
		Values(
			sale.CustomerID, sale.Date,
			sale.Subtotal, sale.DiscountAmount, sale.TaxAmount, sale.FinalAmount,
			sale.PaymentMethod, sale.Status, sale.IsInstallment, sale.InstallmentCount,
			sale.Comment, sale.CreatedAt, sale.UpdatedAt, sale.Version,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&sale.ID); err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert sale: %w", err))
	}

	return nil
}

// SaveItems inserts the line items of a freshly created sale.
func (r *SaleRepo) SaveItems(ctx context.Context, saleID int64, items []sales.Item) error {
	if len(items) == 0 {
		return nil
	}

	columns := []string{"sale_id", "line_no", "stock_code", "quantity", "unit_price", "tax_rate", "net_total", "gross_total"}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, []any{saleID, it.LineNo, it.StockCode, it.Quantity, it.UnitPrice, it.TaxRate, it.NetTotal, it.GrossTotal})
		}
		if _, err := inserter.CopyFromSlice(ctx, itemsTable, columns, rows); err != nil {
			return apperror.NewPersistence(fmt.Errorf("copy items: %w", err))
		}
		return nil
	}

	q := r.builder.Insert(itemsTable).Columns(columns...)
	for _, it := range items {
		q = q.Values(saleID, it.LineNo, it.StockCode, it.Quantity, it.UnitPrice, it.TaxRate, it.NetTotal, it.GrossTotal)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert items: %w", err))
	}

	return nil
}

// GetByID loads the sale header.
func (r *SaleRepo) GetByID(ctx context.Context, saleID int64, includeDeleted bool) (*sales.Sale, error) {
	q := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		Limit(1)

	if !includeDeleted {
		q = q.Where(active())
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sale sales.Sale
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &sale, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, apperror.NewPersistence(fmt.Errorf("get sale: %w", err))
	}

	return &sale, nil
}

// GetItems loads the line items ordered by line number.
func (r *SaleRepo) GetItems(ctx context.Context, saleID int64) ([]sales.Item, error) {
	q := r.builder.Select("id", "sale_id", "line_no", "stock_code", "quantity", "unit_price", "tax_rate", "net_total", "gross_total").
		From(itemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sales.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select items: %w", err))
	}

	return items, nil
}

// List retrieves sales with filtering and a total count for pagination.
func (r *SaleRepo) List(ctx context.Context, filter sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	var result domain.ListResult[*sales.Sale]

	conditions := make([]squirrel.Sqlizer, 0, 6)
	if !filter.IncludeDeleted {
		conditions = append(conditions, active())
	}
	if filter.Status != nil {
		conditions = append(conditions, squirrel.Eq{"status": *filter.Status})
	}
	if filter.CustomerID != nil {
		conditions = append(conditions, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.IsInstallment != nil {
		conditions = append(conditions, squirrel.Eq{"is_installment": *filter.IsInstallment})
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		conditions = append(conditions, squirrel.LtOrEq{"date": *filter.DateTo})
	}

	querier := r.txManager.GetQuerier(ctx)

	countQ := r.builder.Select("COUNT(*)").From(salesTable)
	for _, c := range conditions {
		countQ = countQ.Where(c)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, apperror.NewPersistence(fmt.Errorf("count sales: %w", err))
	}

	q := r.builder.Select(saleColumns...).From(salesTable)
	for _, c := range conditions {
		q = q.Where(c)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "date DESC"
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, apperror.NewPersistence(fmt.Errorf("select sales: %w", err))
	}

	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}

// SetStatus updates the status field and bumps the version.
func (r *SaleRepo) SetStatus(ctx context.Context, saleID int64, status sales.Status) error {
	return r.setStatus(ctx, saleID, string(status))
}

func (r *SaleRepo) setStatus(ctx context.Context, saleID int64, status string) error {
	q := r.builder.Update(salesTable).
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": saleID}).
		Where(active())

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("set status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID)
	}

	return nil
}

// ClaimReversal moves an active sale into a terminal status. The status
// predicate makes the update conditional: once one transaction commits the
// transition, a competing reversal sees zero affected rows and backs off, so
// stock is never restored twice.
func (r *SaleRepo) ClaimReversal(ctx context.Context, saleID int64, target sales.Status) error {
	q := r.builder.Update(salesTable).
		Set("status", string(target)).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": saleID}).
		Where(active()).
		Where(squirrel.NotEq{"status": []string{
			string(sales.StatusCancelled),
			string(sales.StatusRefunded),
		}})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("claim reversal: %w", err))
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing sale from one already reversed.
		status, err := r.SaleStatus(ctx, saleID)
		if err != nil {
			return err
		}
		return apperror.NewConflict("sale is already cancelled or refunded").
			WithDetail("sale_id", saleID).
			WithDetail("status", status)
	}

	return nil
}

// SoftDelete stamps deleted_at.
func (r *SaleRepo) SoftDelete(ctx context.Context, saleID int64) error {
	q := r.builder.Update(salesTable).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": saleID}).
		Where(active())

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("soft delete: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID)
	}

	return nil
}

// DeleteItems removes the line items of a sale.
func (r *SaleRepo) DeleteItems(ctx context.Context, saleID int64) error {
	q := r.builder.Delete(itemsTable).Where(squirrel.Eq{"sale_id": saleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence(fmt.Errorf("delete items: %w", err))
	}

	return nil
}

// SaleStatus returns the current status of an active sale.
// Part of the installment tracker's view of the sale store.
func (r *SaleRepo) SaleStatus(ctx context.Context, saleID int64) (string, error) {
	q := r.builder.Select("status").
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		Where(active()).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var status string
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &status, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", apperror.NewNotFound("sale", saleID)
		}
		return "", apperror.NewPersistence(fmt.Errorf("get sale status: %w", err))
	}

	return status, nil
}

// UpdateSaleStatus is SetStatus for the installment tracker.
func (r *SaleRepo) UpdateSaleStatus(ctx context.Context, saleID int64, status string) error {
	return r.setStatus(ctx, saleID, status)
}

// Ensure interface compliance.
var (
	_ sales.Repository            = (*SaleRepo)(nil)
	_ installments.SaleStateStore = (*SaleRepo)(nil)
)
