package handlers

import (
	"github.com/gin-gonic/gin"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/stock"
	"salesdesk/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the inventory endpoints.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// List handles GET /inventory.
func (h *StockHandler) List(c *gin.Context) {
	var query dto.StockEntryListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	entries, err := h.service.ListEntries(c.Request.Context(), stock.EntryFilter{
		LowOnly: query.LowStock,
		Search:  query.Search,
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockEntries(entries))
}

// Get handles GET /inventory/:code.
func (h *StockHandler) Get(c *gin.Context) {
	entry, err := h.service.GetEntry(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockEntry(entry))
}

// Movements handles GET /inventory/:code/movements.
func (h *StockHandler) Movements(c *gin.Context) {
	var query dto.StockMovementQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := stock.MovementFilter{
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.Type != "" {
		movType := stock.MovementType(query.Type)
		if !movType.Valid() {
			h.Error(c, apperror.NewValidation("unknown movement type").
				WithDetail("field", "type").
				WithDetail("value", query.Type))
			return
		}
		filter.Type = &movType
	}

	movements, err := h.service.MovementHistory(c.Request.Context(), c.Param("code"), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockMovements(movements))
}

// Adjust handles POST /inventory/:code/adjust.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stockCode := c.Param("code")
	newQty, err := h.service.Adjust(c.Request.Context(), stockCode, req.Delta, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AdjustStockResponse{StockCode: stockCode, NewQuantity: newQty})
}
