package installments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/types"
)

func TestBuildSchedule_ResidualInLastInstallment(t *testing.T) {
	saleDate := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	schedule, err := BuildSchedule(1, saleDate, types.MustMoney("100.00"), 3)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	assert.True(t, schedule[0].Amount.Equal(types.MustMoney("33.33")))
	assert.True(t, schedule[1].Amount.Equal(types.MustMoney("33.33")))
	assert.True(t, schedule[2].Amount.Equal(types.MustMoney("33.34")))
}

func TestBuildSchedule_AmountsSumToTotal(t *testing.T) {
	saleDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		total string
		count int
	}{
		{"100.00", 3},
		{"0.05", 3},
		{"999.99", 7},
		{"1234.56", 12},
		{"41.30", 1},
	}

	for _, tc := range cases {
		total := types.MustMoney(tc.total)
		schedule, err := BuildSchedule(1, saleDate, total, tc.count)
		require.NoError(t, err)
		require.Len(t, schedule, tc.count)

		sum := types.Zero()
		for _, inst := range schedule {
			sum = sum.Add(inst.Amount)
		}
		assert.True(t, sum.Equal(total),
			"total %s count %d: amounts sum to %s", tc.total, tc.count, sum)
	}
}

func TestBuildSchedule_MonthlyDueDates(t *testing.T) {
	saleDate := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	schedule, err := BuildSchedule(7, saleDate, types.MustMoney("600.00"), 4)
	require.NoError(t, err)

	for i, inst := range schedule {
		assert.Equal(t, int64(7), inst.SaleID)
		assert.Equal(t, i+1, inst.Seq)
		assert.Equal(t, StatusPending, inst.Status)
		assert.Equal(t, saleDate.AddDate(0, i+1, 0), inst.DueDate)
		if i > 0 {
			assert.True(t, inst.DueDate.After(schedule[i-1].DueDate),
				"due dates must be strictly increasing")
		}
	}
}

func TestBuildSchedule_NeverExceedsBaseBeforeLast(t *testing.T) {
	saleDate := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	total := types.MustMoney("0.05")

	schedule, err := BuildSchedule(1, saleDate, total, 3)
	require.NoError(t, err)

	base := types.Floor2(total.Div(decimal.NewFromInt(3)))
	for _, inst := range schedule[:2] {
		assert.True(t, inst.Amount.Equal(base))
	}
	assert.True(t, schedule[2].Amount.Equal(types.MustMoney("0.03")))
}

func TestBuildSchedule_RejectsInvalidInput(t *testing.T) {
	saleDate := time.Now().UTC()

	_, err := BuildSchedule(1, saleDate, types.MustMoney("100.00"), 0)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = BuildSchedule(1, saleDate, types.Zero(), 3)
	require.Error(t, err)

	_, err = BuildSchedule(1, saleDate, types.MustMoney("-10.00"), 3)
	require.Error(t, err)
}
