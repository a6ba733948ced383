// Package audit defines the audit trail contract for sale lifecycle actions.
// The PostgreSQL sink lives in infrastructure/storage/postgres.
package audit

import (
	"context"
	"time"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionCancel Action = "cancel"
	ActionRefund Action = "refund"
	ActionStatus Action = "status"
	ActionPay    Action = "pay"
	ActionAdjust Action = "adjust"
)

// Entry is a single audit record. Changes is marshalled (and possibly
// compressed) by the sink.
type Entry struct {
	EntityType string
	EntityID   string
	Action     Action
	UserID     string
	Changes    any
	CreatedAt  time.Time
}

// Recorder persists audit entries. Recording is best-effort from the caller's
// point of view: a failed audit write is logged, never surfaced to the user.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries. Used in tests.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(ctx context.Context, entry Entry) error { return nil }
