package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"salesdesk/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail of a sale.
type AuditHandler struct {
	*BaseHandler
	sink *postgres.AuditSink
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, sink *postgres.AuditSink) *AuditHandler {
	return &AuditHandler{BaseHandler: base, sink: sink}
}

// SaleHistory handles GET /sales/:id/audit.
func (h *AuditHandler) SaleHistory(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.parseLimit(c, 50)
	entries, err := h.sink.History(c.Request.Context(), "sale", strconv.FormatInt(saleID, 10), limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entries)
}

func (h *AuditHandler) parseLimit(c *gin.Context, defaultVal int) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 || parsed > 500 {
		return defaultVal
	}
	return parsed
}
