// Package revalidate defines the view-invalidation signal emitted after every
// committed mutation, keyed by the route paths whose cached views went stale.
// The presentation layer consumes the signal; delivery is fire-and-forget.
package revalidate

import (
	"context"
	"fmt"
)

// Route paths whose rendered views cache sale/stock data.
const (
	PathSales      = "/sales"
	PathInventory  = "/inventory"
	PathFinancials = "/financials"
)

// SalePath returns the detail path for one sale.
func SalePath(saleID int64) string {
	return fmt.Sprintf("/sales/%d", saleID)
}

// Invalidator publishes stale-path notifications.
// Implementations must not fail the calling operation: the mutation is
// already committed when Invalidate runs.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string)
}

// Nop discards all notifications. Used when no cache layer is configured and
// in tests.
type Nop struct{}

// Invalidate implements Invalidator.
func (Nop) Invalidate(ctx context.Context, paths ...string) {}
