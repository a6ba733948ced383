package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/id"
	"salesdesk/internal/domain/sales"
)

// --- Request DTOs ---

// CreateSaleItemRequest is one requested line.
type CreateSaleItemRequest struct {
	StockCode string          `json:"stockCode" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"required"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}

// CreateSaleRequest creates a sale with items in one call.
type CreateSaleRequest struct {
	CustomerID       *string                 `json:"customerId"`
	Date             *time.Time              `json:"date"`
	Items            []CreateSaleItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod    string                  `json:"paymentMethod" binding:"required"`
	IsInstallment    bool                    `json:"isInstallment"`
	InstallmentCount int                     `json:"installmentCount"`
	DiscountAmount   decimal.Decimal         `json:"discountAmount"`
	Comment          string                  `json:"comment"`
}

// ToInput converts the request to the orchestrator's input.
func (r CreateSaleRequest) ToInput() (sales.CreateSaleInput, error) {
	input := sales.CreateSaleInput{
		Date:             r.Date,
		PaymentMethod:    r.PaymentMethod,
		IsInstallment:    r.IsInstallment,
		InstallmentCount: r.InstallmentCount,
		DiscountAmount:   r.DiscountAmount,
		Comment:          r.Comment,
	}

	if r.CustomerID != nil && *r.CustomerID != "" {
		customerID, err := id.Parse(*r.CustomerID)
		if err != nil {
			return input, apperror.NewValidation("invalid customer id").
				WithDetail("field", "customerId").
				WithDetail("value", *r.CustomerID)
		}
		input.CustomerID = &customerID
	}

	input.Items = make([]sales.CreateSaleItem, 0, len(r.Items))
	for _, item := range r.Items {
		input.Items = append(input.Items, sales.CreateSaleItem{
			StockCode: item.StockCode,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxRate:   item.TaxRate,
		})
	}

	return input, nil
}

// UpdateSaleStatusRequest changes the sale status.
type UpdateSaleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SaleListQuery filters sale listings.
type SaleListQuery struct {
	Status        string     `form:"status"`
	CustomerID    string     `form:"customerId"`
	IsInstallment *bool      `form:"isInstallment"`
	DateFrom      *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo        *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset        int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to the repository filter.
func (q SaleListQuery) ToFilter() (sales.ListFilter, error) {
	filter := sales.DefaultListFilter()

	if q.Status != "" {
		status := sales.Status(q.Status)
		if !status.Valid() {
			return filter, apperror.NewValidation("unknown sale status").
				WithDetail("field", "status").
				WithDetail("value", q.Status)
		}
		filter.Status = &status
	}
	if q.CustomerID != "" {
		customerID, err := id.Parse(q.CustomerID)
		if err != nil {
			return filter, apperror.NewValidation("invalid customer id").
				WithDetail("field", "customerId")
		}
		filter.CustomerID = &customerID
	}
	filter.IsInstallment = q.IsInstallment
	filter.DateFrom = q.DateFrom
	filter.DateTo = q.DateTo
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	filter.Offset = q.Offset

	return filter, nil
}

// --- Response DTOs ---

// SaleItemResponse represents one line in API responses.
type SaleItemResponse struct {
	LineNo     int             `json:"lineNo"`
	StockCode  string          `json:"stockCode"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TaxRate    decimal.Decimal `json:"taxRate"`
	NetTotal   decimal.Decimal `json:"netTotal"`
	GrossTotal decimal.Decimal `json:"grossTotal"`
}

// SaleResponse represents a sale in API responses.
type SaleResponse struct {
	ID               int64                 `json:"id"`
	CustomerID       *string               `json:"customerId,omitempty"`
	Date             time.Time             `json:"date"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	DiscountAmount   decimal.Decimal       `json:"discountAmount"`
	TaxAmount        decimal.Decimal       `json:"taxAmount"`
	FinalAmount      decimal.Decimal       `json:"finalAmount"`
	PaymentMethod    string                `json:"paymentMethod"`
	Status           string                `json:"status"`
	IsInstallment    bool                  `json:"isInstallment"`
	InstallmentCount int                   `json:"installmentCount,omitempty"`
	Comment          string                `json:"comment,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	Version          int                   `json:"version"`
	Items            []SaleItemResponse    `json:"items,omitempty"`
	Installments     []InstallmentResponse `json:"installments,omitempty"`
}

// FromSale converts a domain sale to the response DTO.
func FromSale(s *sales.Sale) SaleResponse {
	resp := SaleResponse{
		ID:               s.ID,
		Date:             s.Date,
		Subtotal:         s.Subtotal,
		DiscountAmount:   s.DiscountAmount,
		TaxAmount:        s.TaxAmount,
		FinalAmount:      s.FinalAmount,
		PaymentMethod:    s.PaymentMethod,
		Status:           string(s.Status),
		IsInstallment:    s.IsInstallment,
		InstallmentCount: s.InstallmentCount,
		Comment:          s.Comment,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		Version:          s.Version,
	}

	if s.CustomerID != nil {
		customerID := s.CustomerID.String()
		resp.CustomerID = &customerID
	}

	for _, item := range s.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			LineNo:     item.LineNo,
			StockCode:  item.StockCode,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TaxRate:    item.TaxRate,
			NetTotal:   item.NetTotal,
			GrossTotal: item.GrossTotal,
		})
	}

	if len(s.Installments) > 0 {
		resp.Installments = FromInstallments(s.Installments)
	}

	return resp
}

// FromSales converts a slice of domain sales.
func FromSales(items []*sales.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(items))
	for _, s := range items {
		out = append(out, FromSale(s))
	}
	return out
}
