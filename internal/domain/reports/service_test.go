package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdesk/internal/core/types"
)

type fakeRepo struct {
	rows []RegisterRow
}

func (f *fakeRepo) SalesRegister(ctx context.Context, filter Filter) ([]RegisterRow, error) {
	return f.rows, nil
}

func sampleRows() []RegisterRow {
	return []RegisterRow{
		{
			SaleID:        2,
			Date:          time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			Status:        "pending_installment",
			PaymentMethod: "card",
			ItemCount:     1,
			Subtotal:      types.MustMoney("100.00"),
			Tax:           types.MustMoney("18.00"),
			FinalAmount:   types.MustMoney("118.00"),
			PaidAmount:    types.MustMoney("39.33"),
		},
		{
			SaleID:        1,
			Date:          time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			Status:        "completed",
			PaymentMethod: "cash",
			ItemCount:     2,
			Subtotal:      types.MustMoney("35.00"),
			Tax:           types.MustMoney("6.30"),
			FinalAmount:   types.MustMoney("41.30"),
			PaidAmount:    types.MustMoney("41.30"),
		},
	}
}

func TestSalesRegister_Summary(t *testing.T) {
	svc := NewService(&fakeRepo{rows: sampleRows()})

	rows, summary, err := svc.SalesRegister(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, summary.SaleCount)
	assert.True(t, summary.TotalAmount.Equal(types.MustMoney("159.30")))
	assert.True(t, summary.TotalTax.Equal(types.MustMoney("24.30")))
	assert.True(t, summary.TotalPaid.Equal(types.MustMoney("80.63")))
}

func TestExportXLSX(t *testing.T) {
	svc := NewService(&fakeRepo{rows: sampleRows()})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), Filter{}, &buf))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	const sheet = "Sales Register"

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Sale ID", header)

	status, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "pending_installment", status)

	// Totals land two rows below the data.
	label, err := f.GetCellValue(sheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
}

func TestSalesRegister_EmptyPeriod(t *testing.T) {
	svc := NewService(&fakeRepo{})

	rows, summary, err := svc.SalesRegister(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, summary.SaleCount)
	assert.True(t, summary.TotalAmount.IsZero())
}
