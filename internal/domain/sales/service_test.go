package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/types"
	"salesdesk/internal/domain"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/domain/stock"
)

// fakeStore backs every repository contract the orchestrator touches, so the
// real stock and installment services run against it unchanged.
type fakeStore struct {
	nextSaleID int64
	nextInstID int64
	entries    map[string]*stock.Entry
	movements  []stock.Movement
	sales      map[int64]*Sale
	items      map[int64][]Item
	plans      map[int64][]installments.Installment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[string]*stock.Entry),
		sales:   make(map[int64]*Sale),
		items:   make(map[int64][]Item),
		plans:   make(map[int64][]installments.Installment),
	}
}

func (f *fakeStore) addEntry(stockCode string, quantity int64) {
	f.entries[stockCode] = &stock.Entry{StockCode: stockCode, Name: stockCode, Quantity: quantity}
}

func (f *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	c.nextSaleID = f.nextSaleID
	c.nextInstID = f.nextInstID
	for k, v := range f.entries {
		e := *v
		c.entries[k] = &e
	}
	c.movements = append([]stock.Movement(nil), f.movements...)
	for k, v := range f.sales {
		s := *v
		c.sales[k] = &s
	}
	for k, v := range f.items {
		c.items[k] = append([]Item(nil), v...)
	}
	for k, v := range f.plans {
		c.plans[k] = append([]installments.Installment(nil), v...)
	}
	return c
}

// --- sales.Repository ---

func (f *fakeStore) Create(ctx context.Context, sale *Sale) error {
	f.nextSaleID++
	sale.ID = f.nextSaleID
	header := *sale
	header.Items = nil
	f.sales[sale.ID] = &header
	return nil
}

func (f *fakeStore) SaveItems(ctx context.Context, saleID int64, items []Item) error {
	saved := make([]Item, len(items))
	for i, item := range items {
		item.SaleID = saleID
		saved[i] = item
	}
	f.items[saleID] = saved
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, saleID int64, includeDeleted bool) (*Sale, error) {
	s, ok := f.sales[saleID]
	if !ok || (s.DeletedAt != nil && !includeDeleted) {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	header := *s
	return &header, nil
}

func (f *fakeStore) GetItems(ctx context.Context, saleID int64) ([]Item, error) {
	return append([]Item(nil), f.items[saleID]...), nil
}

func (f *fakeStore) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	var result domain.ListResult[*Sale]
	for _, s := range f.sales {
		if s.DeletedAt != nil && !filter.IncludeDeleted {
			continue
		}
		header := *s
		result.Items = append(result.Items, &header)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, saleID int64, status Status) error {
	s, ok := f.sales[saleID]
	if !ok || s.DeletedAt != nil {
		return apperror.NewNotFound("sale", saleID)
	}
	s.Status = status
	s.Version++
	return nil
}

func (f *fakeStore) ClaimReversal(ctx context.Context, saleID int64, target Status) error {
	s, ok := f.sales[saleID]
	if !ok || s.DeletedAt != nil {
		return apperror.NewNotFound("sale", saleID)
	}
	if s.Status.Terminal() {
		return apperror.NewConflict("sale is already cancelled or refunded").
			WithDetail("sale_id", saleID).
			WithDetail("status", s.Status)
	}
	s.Status = target
	s.Version++
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, saleID int64) error {
	s, ok := f.sales[saleID]
	if !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	return nil
}

func (f *fakeStore) DeleteItems(ctx context.Context, saleID int64) error {
	delete(f.items, saleID)
	return nil
}

// --- stock.Repository ---

func (f *fakeStore) ApplyDelta(ctx context.Context, stockCode string, delta int64) (int64, error) {
	e, ok := f.entries[stockCode]
	if !ok {
		return 0, apperror.NewNotFound("stock entry", stockCode)
	}
	if e.Quantity+delta < 0 {
		return 0, apperror.NewInsufficientStock(stockCode, -delta, e.Quantity)
	}
	e.Quantity += delta
	return e.Quantity, nil
}

func (f *fakeStore) InsertMovements(ctx context.Context, movements []stock.Movement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeStore) GetEntry(ctx context.Context, stockCode string) (stock.Entry, error) {
	e, ok := f.entries[stockCode]
	if !ok {
		return stock.Entry{}, apperror.NewNotFound("stock entry", stockCode)
	}
	return *e, nil
}

func (f *fakeStore) ListEntries(ctx context.Context, filter stock.EntryFilter) ([]stock.Entry, error) {
	var entries []stock.Entry
	for _, e := range f.entries {
		if filter.LowOnly && !e.Low() {
			continue
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (f *fakeStore) MovementsByStockCode(ctx context.Context, stockCode string, filter stock.MovementFilter) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range f.movements {
		if m.StockCode != stockCode {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) MovementsBySale(ctx context.Context, saleID int64, movType *stock.MovementType) ([]stock.Movement, error) {
	var out []stock.Movement
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

// --- installments.Repository ---

func (f *fakeStore) CreateBatch(ctx context.Context, schedule []installments.Installment) error {
	for _, inst := range schedule {
		f.nextInstID++
		inst.ID = f.nextInstID
		f.plans[inst.SaleID] = append(f.plans[inst.SaleID], inst)
	}
	return nil
}

func (f *fakeStore) GetBySaleAndSeq(ctx context.Context, saleID int64, seq int) (installments.Installment, error) {
	for _, inst := range f.plans[saleID] {
		if inst.Seq == seq {
			return inst, nil
		}
	}
	return installments.Installment{}, apperror.NewNotFound("installment", seq)
}

func (f *fakeStore) ListBySale(ctx context.Context, saleID int64) ([]installments.Installment, error) {
	return append([]installments.Installment(nil), f.plans[saleID]...), nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, installmentID int64, paidAt time.Time) error {
	for saleID, plan := range f.plans {
		for i, inst := range plan {
			if inst.ID != installmentID {
				continue
			}
			if inst.Status == installments.StatusPaid {
				return apperror.NewAlreadyPaid(installmentID)
			}
			plan[i].Status = installments.StatusPaid
			plan[i].PaidAt = &paidAt
			f.plans[saleID] = plan
			return nil
		}
	}
	return apperror.NewNotFound("installment", installmentID)
}

func (f *fakeStore) CountUnpaid(ctx context.Context, saleID int64) (int64, error) {
	var n int64
	for _, inst := range f.plans[saleID] {
		if inst.Status != installments.StatusPaid {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteUnpaid(ctx context.Context, saleID int64) (int64, error) {
	var kept []installments.Installment
	var removed int64
	for _, inst := range f.plans[saleID] {
		if inst.Status == installments.StatusPaid {
			kept = append(kept, inst)
		} else {
			removed++
		}
	}
	f.plans[saleID] = kept
	return removed, nil
}

func (f *fakeStore) MarkOverdueBySale(ctx context.Context, saleID int64, asOf time.Time) (int64, error) {
	plan := f.plans[saleID]
	var changed int64
	for i, inst := range plan {
		if inst.Status == installments.StatusPending && inst.DueDate.Before(asOf) {
			plan[i].Status = installments.StatusOverdue
			changed++
		}
	}
	f.plans[saleID] = plan
	return changed, nil
}

func (f *fakeStore) MarkOverdueAll(ctx context.Context, asOf time.Time) (int64, error) {
	var changed int64
	for saleID := range f.plans {
		s, ok := f.sales[saleID]
		if !ok || s.DeletedAt != nil || s.Status != StatusPendingInstallment {
			continue
		}
		n, _ := f.MarkOverdueBySale(ctx, saleID, asOf)
		changed += n
	}
	return changed, nil
}

// --- installments.SaleStateStore ---

func (f *fakeStore) SaleStatus(ctx context.Context, saleID int64) (string, error) {
	s, ok := f.sales[saleID]
	if !ok || s.DeletedAt != nil {
		return "", apperror.NewNotFound("sale", saleID)
	}
	return string(s.Status), nil
}

func (f *fakeStore) UpdateSaleStatus(ctx context.Context, saleID int64, status string) error {
	return f.SetStatus(ctx, saleID, Status(status))
}

// fakeTxManager snapshots the store before fn and restores it when fn fails,
// mirroring the all-or-nothing commit of a database transaction.
type fakeTxManager struct {
	store *fakeStore
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := m.store.clone()
	if err := fn(ctx); err != nil {
		*m.store = *snapshot
		return err
	}
	return nil
}

func newTestService(store *fakeStore) *Service {
	txm := &fakeTxManager{store: store}
	stockSvc := stock.NewService(store, txm, nil, nil)
	instSvc := installments.NewService(store, store, txm, nil, nil)
	return NewService(store, stockSvc, instSvc, txm, nil, nil)
}

func cashInput(items ...CreateSaleItem) CreateSaleInput {
	return CreateSaleInput{Items: items, PaymentMethod: PaymentCash}
}

func TestCreateSale_CompletedCashSale(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("TBL-OAK-120", 10)
	svc := newTestService(store)

	sale, err := svc.CreateSale(ctx, cashInput(CreateSaleItem{
		StockCode: "TBL-OAK-120",
		Quantity:  2,
		UnitPrice: types.MustMoney("17.50"),
		TaxRate:   types.MustMoney("18"),
	}))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, sale.Status)
	assert.True(t, sale.FinalAmount.Equal(types.MustMoney("41.30")))

	entry, err := store.GetEntry(ctx, "TBL-OAK-120")
	require.NoError(t, err)
	assert.Equal(t, int64(8), entry.Quantity)

	movements, err := store.MovementsBySale(ctx, sale.ID, nil)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, stock.MovementSale, movements[0].Type)
	assert.Equal(t, int64(-2), movements[0].Delta)

	assert.Empty(t, store.plans[sale.ID])
}

func TestCreateSale_InstallmentSchedule(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("SOF-GRY-3S", 5)
	svc := newTestService(store)

	input := cashInput(CreateSaleItem{
		StockCode: "SOF-GRY-3S",
		Quantity:  1,
		UnitPrice: types.MustMoney("100.00"),
		TaxRate:   types.Zero(),
	})
	input.IsInstallment = true
	input.InstallmentCount = 3

	sale, err := svc.CreateSale(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingInstallment, sale.Status)

	plan := store.plans[sale.ID]
	require.Len(t, plan, 3)

	sum := types.Zero()
	for _, inst := range plan {
		assert.Equal(t, installments.StatusPending, inst.Status)
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(sale.FinalAmount))
}

func TestCreateSale_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("A", 5)
	store.addEntry("B", 1)
	svc := newTestService(store)

	_, err := svc.CreateSale(ctx, cashInput(
		CreateSaleItem{StockCode: "A", Quantity: 2, UnitPrice: types.MustMoney("10.00")},
		CreateSaleItem{StockCode: "B", Quantity: 3, UnitPrice: types.MustMoney("10.00")},
	))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The first item's decrement must be rolled back with everything else.
	a, _ := store.GetEntry(ctx, "A")
	b, _ := store.GetEntry(ctx, "B")
	assert.Equal(t, int64(5), a.Quantity)
	assert.Equal(t, int64(1), b.Quantity)
	assert.Empty(t, store.sales)
	assert.Empty(t, store.movements)
}

func TestCreateSale_UnknownStockCode(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateSale(ctx, cashInput(CreateSaleItem{
		StockCode: "MISSING",
		Quantity:  1,
		UnitPrice: types.MustMoney("10.00"),
	}))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, store.sales)
}

func TestCancelSale_RestoresStockAndSoftDeletes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("CHR-OAK-STD", 10)
	svc := newTestService(store)

	sale, err := svc.CreateSale(ctx, cashInput(CreateSaleItem{
		StockCode: "CHR-OAK-STD",
		Quantity:  4,
		UnitPrice: types.MustMoney("25.00"),
	}))
	require.NoError(t, err)

	require.NoError(t, svc.CancelSale(ctx, sale.ID))

	entry, _ := store.GetEntry(ctx, "CHR-OAK-STD")
	assert.Equal(t, int64(10), entry.Quantity)

	// Original movement and its reversal both survive as audit trail.
	movements, _ := store.MovementsBySale(ctx, sale.ID, nil)
	require.Len(t, movements, 2)
	assert.Equal(t, stock.MovementSale, movements[0].Type)
	assert.Equal(t, stock.MovementSaleReturn, movements[1].Type)
	assert.Equal(t, movements[0].Delta, -movements[1].Delta)

	_, err = svc.GetByID(ctx, sale.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, store.items[sale.ID])

	header, err := store.GetByID(ctx, sale.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, header.Status)
	assert.NotNil(t, header.DeletedAt)
}

func TestRefundSale_KeepsSaleVisible(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("BED-PNE-160", 3)
	svc := newTestService(store)

	sale, err := svc.CreateSale(ctx, cashInput(CreateSaleItem{
		StockCode: "BED-PNE-160",
		Quantity:  1,
		UnitPrice: types.MustMoney("400.00"),
	}))
	require.NoError(t, err)

	require.NoError(t, svc.RefundSale(ctx, sale.ID))

	entry, _ := store.GetEntry(ctx, "BED-PNE-160")
	assert.Equal(t, int64(3), entry.Quantity)

	refunded, err := svc.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refunded.Status)
	assert.Len(t, refunded.Items, 1)

	// Refunded is terminal: a second reversal is rejected.
	err = svc.RefundSale(ctx, sale.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

// staleReadStore reports a pre-reversal status from GetByID, simulating a
// competing reversal that commits between the read and the status claim.
type staleReadStore struct {
	*fakeStore
}

func (s *staleReadStore) GetByID(ctx context.Context, saleID int64, includeDeleted bool) (*Sale, error) {
	sale, err := s.fakeStore.GetByID(ctx, saleID, includeDeleted)
	if err != nil {
		return nil, err
	}
	sale.Status = StatusCompleted
	return sale, nil
}

func TestReverseSale_ConcurrentReversalRestoresOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("LMP-BRS-40", 6)
	svc := newTestService(store)

	sale, err := svc.CreateSale(ctx, cashInput(CreateSaleItem{
		StockCode: "LMP-BRS-40",
		Quantity:  4,
		UnitPrice: types.MustMoney("55.00"),
	}))
	require.NoError(t, err)

	require.NoError(t, svc.RefundSale(ctx, sale.ID))
	entry, _ := store.GetEntry(ctx, "LMP-BRS-40")
	require.Equal(t, int64(6), entry.Quantity)

	// A cancel that read the sale before the refund committed still loses
	// at the status claim and must not restore stock a second time.
	txm := &fakeTxManager{store: store}
	racing := NewService(&staleReadStore{fakeStore: store},
		stock.NewService(store, txm, nil, nil),
		installments.NewService(store, store, txm, nil, nil),
		txm, nil, nil)

	err = racing.CancelSale(ctx, sale.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)

	entry, _ = store.GetEntry(ctx, "LMP-BRS-40")
	assert.Equal(t, int64(6), entry.Quantity)
	movements, _ := store.MovementsBySale(ctx, sale.ID, nil)
	assert.Len(t, movements, 2)
}

func TestGetByID_InstallmentSaleCarriesSchedule(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addEntry("WRD-WHT-200", 2)
	svc := newTestService(store)

	input := cashInput(CreateSaleItem{
		StockCode: "WRD-WHT-200",
		Quantity:  1,
		UnitPrice: types.MustMoney("90.00"),
	})
	input.IsInstallment = true
	input.InstallmentCount = 3

	created, err := svc.CreateSale(ctx, input)
	require.NoError(t, err)

	sale, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.Len(t, sale.Installments, 3)

	sum := types.Zero()
	for _, inst := range sale.Installments {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(sale.FinalAmount))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeStore, *Service, int64) {
		store := newFakeStore()
		store.addEntry("DSK-WAL-140", 5)
		svc := newTestService(store)

		input := cashInput(CreateSaleItem{
			StockCode: "DSK-WAL-140",
			Quantity:  1,
			UnitPrice: types.MustMoney("200.00"),
		})
		input.IsInstallment = true
		input.InstallmentCount = 2

		sale, err := svc.CreateSale(ctx, input)
		require.NoError(t, err)
		return store, svc, sale.ID
	}

	t.Run("allows plain transition", func(t *testing.T) {
		store, svc, saleID := setup(t)
		require.NoError(t, svc.UpdateStatus(ctx, saleID, StatusPending))
		assert.Equal(t, StatusPending, store.sales[saleID].Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, svc, saleID := setup(t)
		err := svc.UpdateStatus(ctx, saleID, Status("shipped"))
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("rejects terminal targets", func(t *testing.T) {
		_, svc, saleID := setup(t)
		err := svc.UpdateStatus(ctx, saleID, StatusCancelled)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
	})

	t.Run("rejects no-op transition", func(t *testing.T) {
		_, svc, saleID := setup(t)
		err := svc.UpdateStatus(ctx, saleID, StatusPendingInstallment)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})

	t.Run("rejects transition out of terminal state", func(t *testing.T) {
		_, svc, saleID := setup(t)
		require.NoError(t, svc.RefundSale(ctx, saleID))
		err := svc.UpdateStatus(ctx, saleID, StatusPending)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})
}
