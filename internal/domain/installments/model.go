// Package installments provides the installment schedule for installment
// sales and the status tracker (paid / overdue transitions).
package installments

import (
	"time"

	"salesdesk/internal/core/types"
)

// Status is the lifecycle state of a single installment.
// pending → paid (manual), pending → overdue (time-based), overdue → paid.
// paid is terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Installment is one due-date/amount pair of a sale's schedule.
type Installment struct {
	ID      int64       `db:"id" json:"id"`
	SaleID  int64       `db:"sale_id" json:"saleId"`
	Seq     int         `db:"seq" json:"seq"`
	DueDate time.Time   `db:"due_date" json:"dueDate"`
	Amount  types.Money `db:"amount" json:"amount"`
	Status  Status      `db:"status" json:"status"`
	PaidAt  *time.Time  `db:"paid_at" json:"paidAt,omitempty"`
}
