package handlers

import (
	"github.com/gin-gonic/gin"

	"salesdesk/internal/domain/sales"
	"salesdesk/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves the sale lifecycle endpoints.
type SaleHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sales.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.service.CreateSale(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromSale(sale))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSale(sale))
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var query dto.SaleListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromSales(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Cancel handles POST /sales/:id/cancel.
func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.CancelSale(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "sale cancelled")
}

// Refund handles POST /sales/:id/refund.
func (h *SaleHandler) Refund(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.RefundSale(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "sale refunded")
}

// UpdateStatus handles PATCH /sales/:id/status.
func (h *SaleHandler) UpdateStatus(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSaleStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), saleID, sales.Status(req.Status)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status updated")
}
