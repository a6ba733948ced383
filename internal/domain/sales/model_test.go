package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/types"
)

func TestAddItem_TaxRoundedToCent(t *testing.T) {
	sale := NewSale(nil, PaymentCash)
	sale.AddItem("TBL-OAK-120", 2, types.MustMoney("17.50"), types.MustMoney("18"))

	require.Len(t, sale.Items, 1)
	item := sale.Items[0]

	assert.True(t, item.NetTotal.Equal(types.MustMoney("35.00")))
	assert.True(t, item.GrossTotal.Equal(types.MustMoney("41.30")))

	assert.True(t, sale.Subtotal.Equal(types.MustMoney("35.00")))
	assert.True(t, sale.TaxAmount.Equal(types.MustMoney("6.30")))
	assert.True(t, sale.FinalAmount.Equal(types.MustMoney("41.30")))
}

func TestSetDiscount_FinalAmountInvariant(t *testing.T) {
	sale := NewSale(nil, PaymentCard)
	sale.AddItem("CHR-OAK-STD", 4, types.MustMoney("25.00"), types.MustMoney("10"))
	sale.AddItem("SHL-BLK-5T", 1, types.MustMoney("50.00"), types.Zero())
	sale.SetDiscount(types.MustMoney("15.00"))

	// final = subtotal - discount + tax
	want := sale.Subtotal.Sub(sale.DiscountAmount).Add(sale.TaxAmount)
	assert.True(t, sale.FinalAmount.Equal(want))
	assert.True(t, sale.Subtotal.Equal(types.MustMoney("150.00")))
	assert.True(t, sale.TaxAmount.Equal(types.MustMoney("10.00")))
	assert.True(t, sale.FinalAmount.Equal(types.MustMoney("145.00")))
}

func TestAddItem_LineNumbersSequential(t *testing.T) {
	sale := NewSale(nil, PaymentPix)
	sale.AddItem("A", 1, types.MustMoney("1.00"), types.Zero())
	sale.AddItem("B", 1, types.MustMoney("2.00"), types.Zero())
	sale.AddItem("C", 1, types.MustMoney("3.00"), types.Zero())

	for i, item := range sale.Items {
		assert.Equal(t, i+1, item.LineNo)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	valid := func() *Sale {
		s := NewSale(nil, PaymentCash)
		s.AddItem("TBL-OAK-120", 1, types.MustMoney("100.00"), types.MustMoney("18"))
		return s
	}

	t.Run("valid sale passes", func(t *testing.T) {
		require.NoError(t, valid().Validate(ctx))
	})

	t.Run("no items", func(t *testing.T) {
		s := NewSale(nil, PaymentCash)
		err := s.Validate(ctx)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		s := valid()
		s.PaymentMethod = "barter"
		require.Error(t, s.Validate(ctx))
	})

	t.Run("installment sale needs count", func(t *testing.T) {
		s := valid()
		s.IsInstallment = true
		s.InstallmentCount = 0
		require.Error(t, s.Validate(ctx))

		s.InstallmentCount = 3
		require.NoError(t, s.Validate(ctx))
	})

	t.Run("negative discount", func(t *testing.T) {
		s := valid()
		s.SetDiscount(types.MustMoney("-5.00"))
		require.Error(t, s.Validate(ctx))
	})

	t.Run("discount exceeding total", func(t *testing.T) {
		s := valid()
		s.SetDiscount(types.MustMoney("500.00"))
		require.Error(t, s.Validate(ctx))
	})

	t.Run("zero quantity line", func(t *testing.T) {
		s := valid()
		s.Items[0].Quantity = 0
		require.Error(t, s.Validate(ctx))
	})

	t.Run("empty stock code", func(t *testing.T) {
		s := valid()
		s.Items[0].StockCode = ""
		require.Error(t, s.Validate(ctx))
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusPendingInstallment.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, Status("shipped").Valid())

	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusCompleted.Terminal())
	assert.False(t, StatusPendingInstallment.Terminal())
}
