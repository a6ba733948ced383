// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors. Amounts are rounded to
// two decimal places only at the points the domain requires it (line totals,
// installment amounts), never implicitly.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round2 rounds to two decimal places (half up).
func Round2(m Money) Money {
	return m.Round(2)
}

// Floor2 truncates toward zero at two decimal places.
// Used by the installment builder so the residual cent lands in the last
// installment instead of being lost to rounding.
func Floor2(m Money) Money {
	return m.RoundDown(2)
}
