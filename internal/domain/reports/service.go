// Package reports provides read-only sales reporting and XLSX export.
package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"salesdesk/internal/core/types"
	"salesdesk/pkg/logger"
)

// RegisterRow is one sale in the sales register.
type RegisterRow struct {
	SaleID        int64       `db:"sale_id" json:"saleId"`
	Date          time.Time   `db:"date" json:"date"`
	Status        string      `db:"status" json:"status"`
	PaymentMethod string      `db:"payment_method" json:"paymentMethod"`
	ItemCount     int         `db:"item_count" json:"itemCount"`
	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	Discount      types.Money `db:"discount_amount" json:"discount"`
	Tax           types.Money `db:"tax_amount" json:"tax"`
	FinalAmount   types.Money `db:"final_amount" json:"finalAmount"`
	PaidAmount    types.Money `db:"paid_amount" json:"paidAmount"`
}

// Summary aggregates the register over the requested period.
type Summary struct {
	SaleCount   int         `json:"saleCount"`
	TotalAmount types.Money `json:"totalAmount"`
	TotalTax    types.Money `json:"totalTax"`
	TotalPaid   types.Money `json:"totalPaid"`
}

// Filter narrows the register by period.
type Filter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

// Repository reads aggregated register rows from storage.
type Repository interface {
	SalesRegister(ctx context.Context, filter Filter) ([]RegisterRow, error)
}

// Service produces the sales register and its XLSX rendering.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SalesRegister returns the register rows with a period summary.
func (s *Service) SalesRegister(ctx context.Context, filter Filter) ([]RegisterRow, Summary, error) {
	rows, err := s.repo.SalesRegister(ctx, filter)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("load sales register: %w", err)
	}

	summary := Summary{
		SaleCount:   len(rows),
		TotalAmount: types.Zero(),
		TotalTax:    types.Zero(),
		TotalPaid:   types.Zero(),
	}
	for _, row := range rows {
		summary.TotalAmount = summary.TotalAmount.Add(row.FinalAmount)
		summary.TotalTax = summary.TotalTax.Add(row.Tax)
		summary.TotalPaid = summary.TotalPaid.Add(row.PaidAmount)
	}

	return rows, summary, nil
}

var registerHeaders = []string{
	"Sale ID", "Date", "Status", "Payment Method", "Items",
	"Subtotal", "Discount", "Tax", "Final Amount", "Paid",
}

// ExportXLSX writes the register as an XLSX workbook.
func (s *Service) ExportXLSX(ctx context.Context, filter Filter, w io.Writer) error {
	rows, summary, err := s.SalesRegister(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sales Register"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range registerHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{
			row.SaleID,
			row.Date.Format("2006-01-02"),
			row.Status,
			row.PaymentMethod,
			row.ItemCount,
			row.Subtotal.InexactFloat64(),
			row.Discount.InexactFloat64(),
			row.Tax.InexactFloat64(),
			row.FinalAmount.InexactFloat64(),
			row.PaidAmount.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	// Totals row below the data.
	totalRow := len(rows) + 3
	totals := map[int]any{
		1:  "Total",
		5:  summary.SaleCount,
		8:  summary.TotalTax.InexactFloat64(),
		9:  summary.TotalAmount.InexactFloat64(),
		10: summary.TotalPaid.InexactFloat64(),
	}
	for col, v := range totals {
		cell, err := excelize.CoordinatesToCellName(col, totalRow)
		if err != nil {
			return fmt.Errorf("total cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write totals: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	logger.Info(ctx, "sales register exported", "rows", len(rows))
	return nil
}
