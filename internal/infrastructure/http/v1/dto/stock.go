package dto

import (
	"time"

	"salesdesk/internal/domain/stock"
)

// --- Response DTOs ---

// StockEntryResponse represents a stock entry in API responses.
type StockEntryResponse struct {
	StockCode   string    `json:"stockCode"`
	Name        string    `json:"name"`
	Quantity    int64     `json:"quantity"`
	MinQuantity int64     `json:"minQuantity"`
	Low         bool      `json:"low"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromStockEntry converts a domain entry to the response DTO.
func FromStockEntry(e stock.Entry) StockEntryResponse {
	return StockEntryResponse{
		StockCode:   e.StockCode,
		Name:        e.Name,
		Quantity:    e.Quantity,
		MinQuantity: e.MinQuantity,
		Low:         e.Low(),
		UpdatedAt:   e.UpdatedAt,
	}
}

// FromStockEntries converts a slice of entries.
func FromStockEntries(entries []stock.Entry) []StockEntryResponse {
	out := make([]StockEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromStockEntry(e))
	}
	return out
}

// StockMovementResponse represents a movement in API responses.
type StockMovementResponse struct {
	LineID       string    `json:"lineId"`
	StockCode    string    `json:"stockCode"`
	Delta        int64     `json:"delta"`
	MovementType string    `json:"movementType"`
	SaleID       *int64    `json:"saleId,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromStockMovement converts a domain movement to the response DTO.
func FromStockMovement(m stock.Movement) StockMovementResponse {
	return StockMovementResponse{
		LineID:       m.LineID.String(),
		StockCode:    m.StockCode,
		Delta:        m.Delta,
		MovementType: string(m.Type),
		SaleID:       m.SaleID,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

// FromStockMovements converts a slice of movements.
func FromStockMovements(movements []stock.Movement) []StockMovementResponse {
	out := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, FromStockMovement(m))
	}
	return out
}

// AdjustStockResponse returns the quantity after a manual adjustment.
type AdjustStockResponse struct {
	StockCode   string `json:"stockCode"`
	NewQuantity int64  `json:"newQuantity"`
}

// --- Request DTOs ---

// StockEntryListQuery filters entry listings.
type StockEntryListQuery struct {
	LowStock bool   `form:"lowStock"`
	Search   string `form:"search"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// StockMovementQuery filters movement history.
type StockMovementQuery struct {
	Type     string     `form:"type"`
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// AdjustStockRequest applies a manual signed correction.
type AdjustStockRequest struct {
	Delta int64  `json:"delta" binding:"required"`
	Note  string `json:"note"`
}
