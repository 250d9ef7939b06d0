package domain

import "time"

// TxKind tells whether a ledger entry adds or removes coins
type TxKind string

const (
	TxCredit TxKind = "credit" // Coins earned
	TxDebit  TxKind = "debit"  // Coins spent
)

// Transaction Model. Entries are immutable once written.
//
// VoucherID is set only on voucher debits; the composite unique index on
// (employee_id, voucher_id) allows at most one such debit per employee and
// voucher while rows with a NULL voucher_id never collide.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Reference   string    `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	EmployeeID  uint      `gorm:"not null;index;uniqueIndex:idx_tx_employee_voucher,priority:1" json:"employee_id"`
	VoucherID   *uint     `gorm:"uniqueIndex:idx_tx_employee_voucher,priority:2" json:"voucher_id,omitempty"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Kind        TxKind    `gorm:"size:8;not null" json:"kind"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
