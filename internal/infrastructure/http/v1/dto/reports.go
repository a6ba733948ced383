package dto

import (
	"time"

	"salesdesk/internal/domain/reports"
)

// SalesRegisterQuery narrows the register by period.
type SalesRegisterQuery struct {
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts the query to the reports filter.
func (q SalesRegisterQuery) ToFilter() reports.Filter {
	return reports.Filter{
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}
}

// SalesRegisterResponse wraps register rows with the period summary.
type SalesRegisterResponse struct {
	Rows    []reports.RegisterRow `json:"rows"`
	Summary reports.Summary       `json:"summary"`
}
