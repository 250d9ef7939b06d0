package domain

// Employee roles
const (
	RoleEmployee = "employee" // Regular staff member, earns and spends coins
	RoleAdmin    = "admin"    // Restaurant administrator, manages vouchers and credits
)

// Employee Model
type Employee struct {
	ID       uint    `gorm:"primaryKey" json:"id"`                          // Primary key
	TenantID uint    `gorm:"not null;index" json:"tenant_id"`               // Owning restaurant
	Username string  `gorm:"size:64;uniqueIndex;not null" json:"username"`  // Unique username
	Password string  `gorm:"not null" json:"-"`                             // Hashed password
	Role     string  `gorm:"size:16;default:employee" json:"role"`          // Role: employee or admin
	Wallet   *Wallet `gorm:"foreignKey:EmployeeID" json:"wallet,omitempty"` // One-to-one relationship with Wallet
}

// IsAdmin reports whether the employee administers its tenant
func (e Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}
