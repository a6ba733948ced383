// Package stock_repo provides the PostgreSQL implementation of the stock
// ledger repository.
package stock_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/stock"
	"salesdesk/internal/infrastructure/storage/postgres"
)

const (
	entriesTable   = "stock_entries"
	movementsTable = "stock_movements"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ApplyDelta adds delta to the entry's quantity. The non-negativity guard
// runs inside the UPDATE itself so concurrent sales cannot both pass a
// read-then-write check and drive the quantity below zero.
func (r *StockRepo) ApplyDelta(ctx context.Context, stockCode string, delta int64) (int64, error) {
	sql := `
		UPDATE stock_entries
		SET quantity = quantity + $2, updated_at = now()
		WHERE stock_code = $1 AND quantity + $2 >= 0
		RETURNING quantity
	`

	querier := r.txManager.GetQuerier(ctx)

	var newQuantity int64
	err := querier.QueryRow(ctx, sql, stockCode, delta).Scan(&newQuantity)
	if err == nil {
		return newQuantity, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewPersistence(fmt.Errorf("apply delta: %w", err))
	}

	// No row updated: either the entry is missing or the guard failed.
	var available int64
	err = querier.QueryRow(ctx, "SELECT quantity FROM stock_entries WHERE stock_code = $1", stockCode).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewNotFound("stock entry", stockCode)
	}
	if err != nil {
		return 0, apperror.NewPersistence(fmt.Errorf("check entry: %w", err))
	}

	return 0, apperror.NewInsufficientStock(stockCode, -delta, available)
}

// InsertMovements appends movement records.
func (r *StockRepo) InsertMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	columns := []string{"line_id", "stock_code", "delta", "movement_type", "sale_id", "note", "created_at"}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{m.LineID, m.StockCode, m.Delta, m.Type, m.SaleID, m.Note, m.CreatedAt})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, columns, rows); err != nil {
			return apperror.NewPersistence(fmt.Errorf("copy movements: %w", err))
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(columns...)
	for _, m := range movements {
		q = q.Values(m.LineID, m.StockCode, m.Delta, m.Type, m.SaleID, m.Note, m.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert movements: %w", err))
	}

	return nil
}

// GetEntry retrieves one stock entry by code.
func (r *StockRepo) GetEntry(ctx context.Context, stockCode string) (stock.Entry, error) {
	var entry stock.Entry

	q := r.builder.Select("stock_code", "name", "quantity", "min_quantity", "updated_at").
		From(entriesTable).
		Where(squirrel.Eq{"stock_code": stockCode}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entry, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &entry, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entry, apperror.NewNotFound("stock entry", stockCode)
		}
		return entry, apperror.NewPersistence(fmt.Errorf("get entry: %w", err))
	}

	return entry, nil
}

// ListEntries retrieves stock entries with filtering.
func (r *StockRepo) ListEntries(ctx context.Context, filter stock.EntryFilter) ([]stock.Entry, error) {
	q := r.builder.Select("stock_code", "name", "quantity", "min_quantity", "updated_at").
		From(entriesTable)

	if filter.LowOnly {
		q = q.Where("quantity <= min_quantity")
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": "%" + filter.Search + "%"},
			squirrel.ILike{"stock_code": "%" + filter.Search + "%"},
		})
	}

	q = q.OrderBy("stock_code")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []stock.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select entries: %w", err))
	}

	return entries, nil
}

// MovementsByStockCode returns movement history for a product.
func (r *StockRepo) MovementsByStockCode(ctx context.Context, stockCode string, filter stock.MovementFilter) ([]stock.Movement, error) {
	q := r.builder.Select("line_id", "stock_code", "delta", "movement_type", "sale_id", "note", "created_at").
		From(movementsTable).
		Where(squirrel.Eq{"stock_code": stockCode})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select movements: %w", err))
	}

	return movements, nil
}

// MovementsBySale returns the movements a sale produced.
func (r *StockRepo) MovementsBySale(ctx context.Context, saleID int64, movType *stock.MovementType) ([]stock.Movement, error) {
	q := r.builder.Select("line_id", "stock_code", "delta", "movement_type", "sale_id", "note", "created_at").
		From(movementsTable).
		Where(squirrel.Eq{"sale_id": saleID})

	if movType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *movType})
	}

	q = q.OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("select sale movements: %w", err))
	}

	return movements, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
