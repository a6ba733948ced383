package installments

import (
	"time"

	"github.com/shopspring/decimal"

	"salesdesk/internal/core/apperror"
	"salesdesk/internal/core/types"
)

// BuildSchedule derives the installment schedule for a sale.
//
// Every installment gets floor(total/count) at two decimal places except the
// last, which absorbs the residual so the amounts sum exactly to total.
// Due dates are one calendar month apart, starting one month after the sale
// date, strictly increasing by sequence position.
func BuildSchedule(saleID int64, saleDate time.Time, total types.Money, count int) ([]Installment, error) {
	if count < 1 {
		return nil, apperror.NewValidation("installment count must be at least 1").
			WithDetail("field", "installmentCount")
	}
	if total.IsNegative() || total.IsZero() {
		return nil, apperror.NewValidation("installment total must be positive").
			WithDetail("field", "finalAmount")
	}

	base := types.Floor2(total.Div(decimal.NewFromInt(int64(count))))

	schedule := make([]Installment, 0, count)
	for i := 1; i <= count; i++ {
		amount := base
		if i == count {
			amount = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		schedule = append(schedule, Installment{
			SaleID:  saleID,
			Seq:     i,
			DueDate: saleDate.AddDate(0, i, 0),
			Amount:  amount,
			Status:  StatusPending,
		})
	}

	return schedule, nil
}
