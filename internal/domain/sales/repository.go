package sales

import (
	"context"
	"time"

	"salesdesk/internal/core/id"
	"salesdesk/internal/domain"
)

// ListFilter narrows sale listings. Soft-deleted sales are excluded unless
// IncludeDeleted is set; the repository applies that predicate in one place.
type ListFilter struct {
	domain.Page

	Status         *Status
	CustomerID     *id.ID
	IsInstallment  *bool
	DateFrom       *time.Time
	DateTo         *time.Time
	IncludeDeleted bool
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Page: domain.Page{Limit: 50, OrderBy: "date DESC"},
	}
}

// Repository is the storage contract for the sale aggregate.
type Repository interface {
	// Create inserts the header and assigns sale.ID.
	Create(ctx context.Context, sale *Sale) error

	// SaveItems inserts the line items of a freshly created sale.
	SaveItems(ctx context.Context, saleID int64, items []Item) error

	// GetByID loads the header. Soft-deleted sales are reported as not found
	// unless includeDeleted is set.
	GetByID(ctx context.Context, saleID int64, includeDeleted bool) (*Sale, error)

	GetItems(ctx context.Context, saleID int64) ([]Item, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// SetStatus updates the status field only.
	SetStatus(ctx context.Context, saleID int64, status Status) error

	// ClaimReversal atomically moves an active, non-terminal sale into the
	// target terminal status. The status predicate in storage arbitrates
	// concurrent reversals: exactly one caller wins, the rest get a conflict.
	ClaimReversal(ctx context.Context, saleID int64, target Status) error

	// SoftDelete stamps deleted_at. The row stays for payments/items audit.
	SoftDelete(ctx context.Context, saleID int64) error

	// DeleteItems removes the line items (cancellation cleanup).
	DeleteItems(ctx context.Context, saleID int64) error
}
