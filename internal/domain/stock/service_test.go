package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/id"
)

type fakeRepo struct {
	quantities map[string]int64
	movements  []Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{quantities: make(map[string]int64)}
}

func (f *fakeRepo) ApplyDelta(ctx context.Context, stockCode string, delta int64) (int64, error) {
	qty, ok := f.quantities[stockCode]
	if !ok {
		return 0, apperror.NewNotFound("stock entry", stockCode)
	}
	if qty+delta < 0 {
		return 0, apperror.NewInsufficientStock(stockCode, -delta, qty)
	}
	f.quantities[stockCode] = qty + delta
	return qty + delta, nil
}

func (f *fakeRepo) InsertMovements(ctx context.Context, movements []Movement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeRepo) GetEntry(ctx context.Context, stockCode string) (Entry, error) {
	qty, ok := f.quantities[stockCode]
	if !ok {
		return Entry{}, apperror.NewNotFound("stock entry", stockCode)
	}
	return Entry{StockCode: stockCode, Quantity: qty}, nil
}

func (f *fakeRepo) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	var entries []Entry
	for code, qty := range f.quantities {
		entries = append(entries, Entry{StockCode: code, Quantity: qty})
	}
	return entries, nil
}

func (f *fakeRepo) MovementsByStockCode(ctx context.Context, stockCode string, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for _, m := range f.movements {
		if m.StockCode == stockCode {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) MovementsBySale(ctx context.Context, saleID int64, movType *MovementType) ([]Movement, error) {
	var out []Movement
	for _, m := range f.movements {
		if m.SaleID == nil || *m.SaleID != saleID {
			continue
		}
		if movType != nil && m.Type != *movType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestApplyDelta_RecordsMovement(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.quantities["WRD-WHT-200"] = 4
	svc := NewService(repo, passthroughTx{}, nil, nil)

	saleID := int64(42)
	newQty, err := svc.ApplyDelta(ctx, "WRD-WHT-200", -3, MovementSale, &saleID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), newQty)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, "WRD-WHT-200", m.StockCode)
	assert.Equal(t, int64(-3), m.Delta)
	assert.Equal(t, MovementSale, m.Type)
	require.NotNil(t, m.SaleID)
	assert.Equal(t, saleID, *m.SaleID)
	assert.False(t, id.IsNil(m.LineID))
}

func TestApplyDelta_RejectsInvalidMovement(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.quantities["X"] = 10
	svc := NewService(repo, passthroughTx{}, nil, nil)

	_, err := svc.ApplyDelta(ctx, "X", 0, MovementAdjustment, nil, "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.ApplyDelta(ctx, "", 1, MovementAdjustment, nil, "")
	require.Error(t, err)

	_, err = svc.ApplyDelta(ctx, "X", 1, MovementType("theft"), nil, "")
	require.Error(t, err)

	// Nothing recorded for rejected movements.
	assert.Empty(t, repo.movements)
}

func TestApplyDelta_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.quantities["X"] = 2
	svc := NewService(repo, passthroughTx{}, nil, nil)

	_, err := svc.ApplyDelta(ctx, "X", -5, MovementAdjustment, nil, "")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(2), appErr.Details["available"])
	assert.Equal(t, int64(2), repo.quantities["X"])
}

func TestReverseForSale_NegatesSaleMovements(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.quantities["A"] = 10
	repo.quantities["B"] = 10
	svc := NewService(repo, passthroughTx{}, nil, nil)

	saleID := int64(7)
	_, err := svc.ApplyDelta(ctx, "A", -2, MovementSale, &saleID, "")
	require.NoError(t, err)
	_, err = svc.ApplyDelta(ctx, "B", -4, MovementSale, &saleID, "")
	require.NoError(t, err)

	require.NoError(t, svc.ReverseForSale(ctx, saleID))

	assert.Equal(t, int64(10), repo.quantities["A"])
	assert.Equal(t, int64(10), repo.quantities["B"])

	returnType := MovementSaleReturn
	returns, err := repo.MovementsBySale(ctx, saleID, &returnType)
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.Equal(t, int64(2), returns[0].Delta)
	assert.Equal(t, int64(4), returns[1].Delta)
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.quantities["SHL-BLK-5T"] = 15
	svc := NewService(repo, passthroughTx{}, nil, nil)

	newQty, err := svc.Adjust(ctx, "SHL-BLK-5T", -3, "damaged in warehouse")
	require.NoError(t, err)
	assert.Equal(t, int64(12), newQty)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, MovementAdjustment, m.Type)
	assert.Nil(t, m.SaleID)
	assert.Equal(t, "damaged in warehouse", m.Note)
}

func TestEntry_Low(t *testing.T) {
	assert.True(t, Entry{Quantity: 2, MinQuantity: 2}.Low())
	assert.True(t, Entry{Quantity: 0, MinQuantity: 1}.Low())
	assert.False(t, Entry{Quantity: 3, MinQuantity: 2}.Low())
}
