// Package sales provides the sale aggregate (header plus ordered line items)
// and the orchestrator that creates and reverses sales as one atomic unit.
package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/id"
	"salesdesk/internal/core/types"
	"salesdesk/internal/domain/installments"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusPending            Status = "pending"
	StatusPendingInstallment Status = "pending_installment"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
	StatusRefunded           Status = "refunded"
)

// Valid reports whether the status is one of the defined values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingInstallment, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Payment methods accepted at the sale boundary.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentPix      = "pix"
)

func validPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentPix:
		return true
	}
	return false
}

// Sale is the aggregate header. Items and the installment schedule are owned
// exclusively by the sale (cascade lifecycle); stock movements reference the
// sale but are owned by the ledger and outlive a cancelled sale.
type Sale struct {
	ID         int64  `db:"id" json:"id"`
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	Date time.Time `db:"date" json:"date"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	FinalAmount    types.Money `db:"final_amount" json:"finalAmount"`

	PaymentMethod    string `db:"payment_method" json:"paymentMethod"`
	Status           Status `db:"status" json:"status"`
	IsInstallment    bool   `db:"is_installment" json:"isInstallment"`
	InstallmentCount int    `db:"installment_count" json:"installmentCount"`

	Comment string `db:"comment" json:"comment,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	Version   int        `db:"version" json:"version"`

	Items        []Item                     `db:"-" json:"items"`
	Installments []installments.Installment `db:"-" json:"installments,omitempty"`
}

// Item is one line of a sale. Immutable after creation.
type Item struct {
	ID     int64 `db:"id" json:"id"`
	SaleID int64 `db:"sale_id" json:"saleId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	StockCode string      `db:"stock_code" json:"stockCode"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// TaxRate is a percentage (18 means 18%).
	TaxRate types.Money `db:"tax_rate" json:"taxRate"`

	NetTotal   types.Money `db:"net_total" json:"netTotal"`
	GrossTotal types.Money `db:"gross_total" json:"grossTotal"`
}

// NewSale creates a sale header with date defaulted to now.
func NewSale(customerID *id.ID, paymentMethod string) *Sale {
	now := time.Now().UTC()
	return &Sale{
		CustomerID:     customerID,
		Date:           now,
		Subtotal:       types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
		FinalAmount:    types.Zero(),
		PaymentMethod:  paymentMethod,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
		Items:          make([]Item, 0),
	}
}

// AddItem appends a line and recalculates totals.
// net = quantity * unit_price; tax = net * rate%, rounded to the cent.
func (s *Sale) AddItem(stockCode string, quantity int64, unitPrice, taxRate types.Money) {
	net := unitPrice.Mul(decimal.NewFromInt(quantity))
	tax := types.Round2(net.Mul(taxRate).Div(decimal.NewFromInt(100)))

	item := Item{
		LineNo:     len(s.Items) + 1,
		StockCode:  stockCode,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TaxRate:    taxRate,
		NetTotal:   net,
		GrossTotal: net.Add(tax),
	}

	s.Items = append(s.Items, item)
	s.recalculateTotals()
}

// recalculateTotals keeps the final_amount invariant:
// final_amount = subtotal - discount_amount + tax_amount.
func (s *Sale) recalculateTotals() {
	subtotal := types.Zero()
	tax := types.Zero()
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.NetTotal)
		tax = tax.Add(item.GrossTotal.Sub(item.NetTotal))
	}
	s.Subtotal = subtotal
	s.TaxAmount = tax
	s.FinalAmount = subtotal.Sub(s.DiscountAmount).Add(tax)
}

// SetDiscount applies a discount and recalculates totals.
func (s *Sale) SetDiscount(discount types.Money) {
	s.DiscountAmount = discount
	s.recalculateTotals()
}

// Validate checks aggregate invariants.
func (s *Sale) Validate(ctx context.Context) error {
	if len(s.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	if !validPaymentMethod(s.PaymentMethod) {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", s.PaymentMethod)
	}
	if s.IsInstallment && s.InstallmentCount < 1 {
		return apperror.NewValidation("installment count must be at least 1").
			WithDetail("field", "installmentCount")
	}
	if s.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").
			WithDetail("field", "discountAmount")
	}
	if s.FinalAmount.IsNegative() {
		return apperror.NewValidation("final amount must not be negative").
			WithDetail("field", "discountAmount")
	}

	for i, item := range s.Items {
		if item.StockCode == "" {
			return apperror.NewValidation("stock code is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.Quantity < 1 {
			return apperror.NewValidation("quantity must be at least 1").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.TaxRate.IsNegative() {
			return apperror.NewValidation("tax rate must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
