package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/infrastructure/http/v1/dto"
)

// InstallmentHandler serves the installment schedule endpoints.
type InstallmentHandler struct {
	*BaseHandler
	service *installments.Service
}

// NewInstallmentHandler creates a new installment handler.
func NewInstallmentHandler(base *BaseHandler, service *installments.Service) *InstallmentHandler {
	return &InstallmentHandler{BaseHandler: base, service: service}
}

// List handles GET /sales/:id/installments.
func (h *InstallmentHandler) List(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	schedule, err := h.service.ListBySale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInstallments(schedule))
}

// Pay handles POST /sales/:id/installments/:seq/pay.
func (h *InstallmentHandler) Pay(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		h.Error(c, apperror.NewValidation("invalid installment sequence").
			WithDetail("param", "seq").
			WithDetail("value", c.Param("seq")))
		return
	}

	paid, err := h.service.MarkPaid(c.Request.Context(), saleID, seq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInstallment(paid))
}

// DetectOverdue handles POST /sales/:id/installments/detect-overdue.
func (h *InstallmentHandler) DetectOverdue(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	// Body is optional; an empty body means "now".
	var req dto.DetectOverdueRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	changed, err := h.service.DetectOverdue(c.Request.Context(), saleID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.DetectOverdueResponse{Changed: changed})
}
