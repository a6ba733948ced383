package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/domain/reports"
	"salesdesk/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// SalesRegister handles GET /reports/sales.
func (h *ReportsHandler) SalesRegister(c *gin.Context) {
	var query dto.SalesRegisterQuery
	if !h.BindQuery(c, &query) {
		return
	}

	rows, summary, err := h.service.SalesRegister(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SalesRegisterResponse{Rows: rows, Summary: summary})
}

// ExportSalesRegister handles GET /reports/sales/export.
// Streams the register as an XLSX attachment.
func (h *ReportsHandler) ExportSalesRegister(c *gin.Context) {
	var query dto.SalesRegisterQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filename := fmt.Sprintf("sales-register-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if err := h.service.ExportXLSX(c.Request.Context(), query.ToFilter(), c.Writer); err != nil {
		// Headers may already be out; the error middleware will skip a
		// written response, so log via the error chain regardless.
		h.Error(c, apperror.NewInternal(err))
		return
	}

	c.Status(http.StatusOK)
}
