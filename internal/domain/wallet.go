package domain

import "time"

// Wallet Model. TotalEarned and TotalSpent are a materialized view of the
// employee's ledger and only change together with the entry that justifies them.
type Wallet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                    // Primary key
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`         // Owning restaurant
	EmployeeID  uint      `gorm:"not null;uniqueIndex" json:"employee_id"` // One wallet per employee
	TotalEarned int64     `gorm:"not null;default:0" json:"total_earned"`  // Sum of credits
	TotalSpent  int64     `gorm:"not null;default:0" json:"total_spent"`   // Sum of debits
	CreatedAt   time.Time `json:"created_at"`                              // Creation time
	UpdatedAt   time.Time `json:"updated_at"`                              // Last balance change
}

// Available returns the spendable coin balance
func (w Wallet) Available() int64 {
	return w.TotalEarned - w.TotalSpent
}
