// Package notify delivers employee notifications after ledger commits.
// Delivery is best effort: at most once, and a failure never affects the
// financial transaction that triggered it.
package notify

import (
	"context"
	"time"
)

// Severity levels
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Categories
const (
	CategoryCoins   = "coins"
	CategoryVoucher = "voucher"
)

// Notification is one message for one employee
type Notification struct {
	EmployeeID uint           `json:"employee_id"`
	TenantID   uint           `json:"tenant_id"`
	Severity   string         `json:"severity"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Sink delivers notifications somewhere
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Discard drops every notification
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
