package installments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/types"
)

type fakeRepo struct {
	nextID int64
	plans  map[int64][]Installment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{plans: make(map[int64][]Installment)}
}

func (f *fakeRepo) CreateBatch(ctx context.Context, schedule []Installment) error {
	for _, inst := range schedule {
		f.nextID++
		inst.ID = f.nextID
		f.plans[inst.SaleID] = append(f.plans[inst.SaleID], inst)
	}
	return nil
}

func (f *fakeRepo) GetBySaleAndSeq(ctx context.Context, saleID int64, seq int) (Installment, error) {
	for _, inst := range f.plans[saleID] {
		if inst.Seq == seq {
			return inst, nil
		}
	}
	return Installment{}, apperror.NewNotFound("installment", seq)
}

func (f *fakeRepo) ListBySale(ctx context.Context, saleID int64) ([]Installment, error) {
	return append([]Installment(nil), f.plans[saleID]...), nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, installmentID int64, paidAt time.Time) error {
	for saleID, plan := range f.plans {
		for i, inst := range plan {
			if inst.ID != installmentID {
				continue
			}
			if inst.Status == StatusPaid {
				return apperror.NewAlreadyPaid(installmentID)
			}
			plan[i].Status = StatusPaid
			plan[i].PaidAt = &paidAt
			f.plans[saleID] = plan
			return nil
		}
	}
	return apperror.NewNotFound("installment", installmentID)
}

func (f *fakeRepo) CountUnpaid(ctx context.Context, saleID int64) (int64, error) {
	var n int64
	for _, inst := range f.plans[saleID] {
		if inst.Status != StatusPaid {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeleteUnpaid(ctx context.Context, saleID int64) (int64, error) {
	var kept []Installment
	var removed int64
	for _, inst := range f.plans[saleID] {
		if inst.Status == StatusPaid {
			kept = append(kept, inst)
		} else {
			removed++
		}
	}
	f.plans[saleID] = kept
	return removed, nil
}

func (f *fakeRepo) MarkOverdueBySale(ctx context.Context, saleID int64, asOf time.Time) (int64, error) {
	plan := f.plans[saleID]
	var changed int64
	for i, inst := range plan {
		if inst.Status == StatusPending && inst.DueDate.Before(asOf) {
			plan[i].Status = StatusOverdue
			changed++
		}
	}
	f.plans[saleID] = plan
	return changed, nil
}

func (f *fakeRepo) MarkOverdueAll(ctx context.Context, asOf time.Time) (int64, error) {
	var changed int64
	for saleID := range f.plans {
		n, _ := f.MarkOverdueBySale(ctx, saleID, asOf)
		changed += n
	}
	return changed, nil
}

type fakeSaleStore struct {
	statuses map[int64]string
}

func (f *fakeSaleStore) SaleStatus(ctx context.Context, saleID int64) (string, error) {
	status, ok := f.statuses[saleID]
	if !ok {
		return "", apperror.NewNotFound("sale", saleID)
	}
	return status, nil
}

func (f *fakeSaleStore) UpdateSaleStatus(ctx context.Context, saleID int64, status string) error {
	if _, ok := f.statuses[saleID]; !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	f.statuses[saleID] = status
	return nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func setupTracker(t *testing.T, count int) (*fakeRepo, *fakeSaleStore, *Service) {
	t.Helper()

	repo := newFakeRepo()
	saleStore := &fakeSaleStore{statuses: map[int64]string{1: salePendingInstallment}}
	svc := NewService(repo, saleStore, passthroughTx{}, nil, nil)

	saleDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateSchedule(context.Background(), 1, saleDate, types.MustMoney("100.00"), count)
	require.NoError(t, err)

	return repo, saleStore, svc
}

func TestMarkPaid_PromotesSaleAfterLastInstallment(t *testing.T) {
	ctx := context.Background()
	_, saleStore, svc := setupTracker(t, 2)

	paid, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, salePendingInstallment, saleStore.statuses[1])

	_, err = svc.MarkPaid(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, saleCompleted, saleStore.statuses[1])
}

func TestMarkPaid_RejectsDoublePay(t *testing.T) {
	ctx := context.Background()
	_, _, svc := setupTracker(t, 3)

	_, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, 1, 1)
	require.Error(t, err)
	assert.True(t, apperror.IsAlreadyPaid(err))
}

func TestMarkPaid_UnknownSeq(t *testing.T) {
	ctx := context.Background()
	_, _, svc := setupTracker(t, 2)

	_, err := svc.MarkPaid(ctx, 1, 9)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMarkPaid_NoPromotionWhenSaleLeftPending(t *testing.T) {
	ctx := context.Background()
	_, saleStore, svc := setupTracker(t, 1)

	// The sale moved on through another path; paying the last installment
	// must not overwrite its status.
	saleStore.statuses[1] = "refunded"

	_, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "refunded", saleStore.statuses[1])
}

func TestDetectOverdue_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := setupTracker(t, 3)

	// Past the second due date, before the third.
	asOf := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	changed, err := svc.DetectOverdue(ctx, 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = svc.DetectOverdue(ctx, 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	plan := repo.plans[1]
	assert.Equal(t, StatusOverdue, plan[0].Status)
	assert.Equal(t, StatusOverdue, plan[1].Status)
	assert.Equal(t, StatusPending, plan[2].Status)
}

func TestDetectOverdue_PaidInstallmentsUntouched(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := setupTracker(t, 2)

	_, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)

	asOf := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	changed, err := svc.DetectOverdue(ctx, 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	assert.Equal(t, StatusPaid, repo.plans[1][0].Status)
}

func TestDetectOverdue_OverdueStillPayable(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := setupTracker(t, 1)

	asOf := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	changed, err := svc.DetectOverdue(ctx, 1, asOf)
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)
	require.Equal(t, StatusOverdue, repo.plans[1][0].Status)

	paid, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
}

func TestRemoveUnpaid_KeepsPaid(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := setupTracker(t, 3)

	_, err := svc.MarkPaid(ctx, 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveUnpaid(ctx, 1))

	plan := repo.plans[1]
	require.Len(t, plan, 1)
	assert.Equal(t, StatusPaid, plan[0].Status)
	assert.Equal(t, 1, plan[0].Seq)
}
