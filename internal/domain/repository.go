// Package domain provides core business logic interfaces and types.
package domain

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page contains common pagination options for list operations.
type Page struct {
	// OrderBy specifies sorting (e.g., "date DESC", "created_at")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultPage returns sensible defaults.
func DefaultPage() Page {
	return Page{
		Limit:   50,
		OrderBy: "created_at DESC",
	}
}
