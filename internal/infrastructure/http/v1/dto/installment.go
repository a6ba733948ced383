package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/internal/domain/installments"
)

// InstallmentResponse represents one installment in API responses.
type InstallmentResponse struct {
	ID      int64           `json:"id"`
	SaleID  int64           `json:"saleId"`
	Seq     int             `json:"seq"`
	DueDate time.Time       `json:"dueDate"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	PaidAt  *time.Time      `json:"paidAt,omitempty"`
}

// FromInstallment converts a domain installment to the response DTO.
func FromInstallment(inst installments.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:      inst.ID,
		SaleID:  inst.SaleID,
		Seq:     inst.Seq,
		DueDate: inst.DueDate,
		Amount:  inst.Amount,
		Status:  string(inst.Status),
		PaidAt:  inst.PaidAt,
	}
}

// FromInstallments converts a schedule.
func FromInstallments(schedule []installments.Installment) []InstallmentResponse {
	out := make([]InstallmentResponse, 0, len(schedule))
	for _, inst := range schedule {
		out = append(out, FromInstallment(inst))
	}
	return out
}

// DetectOverdueRequest optionally pins the reference time.
// Defaults to now when omitted.
type DetectOverdueRequest struct {
	AsOf *time.Time `json:"asOf"`
}

// DetectOverdueResponse reports how many installments changed.
type DetectOverdueResponse struct {
	Changed int64 `json:"changed"`
}
