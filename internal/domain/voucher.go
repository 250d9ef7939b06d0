package domain

import (
	"slices"
	"time"

	"gorm.io/gorm"
)

// VoucherStatus controls whether a voucher can currently be redeemed
type VoucherStatus string

const (
	VoucherActive   VoucherStatus = "Active"
	VoucherInactive VoucherStatus = "Inactive"
)

// Valid reports whether s is a known status
func (s VoucherStatus) Valid() bool {
	return s == VoucherActive || s == VoucherInactive
}

// Scope names the two shapes of an Assignment
type Scope string

const (
	ScopeAll      Scope = "ALL"
	ScopeSpecific Scope = "SPECIFIC"
)

// Assignment says who may redeem a voucher. The zero value targets every
// employee of the tenant; AssignTo is the only way to build a SPECIFIC
// assignment, and it refuses an empty employee list.
type Assignment struct {
	specific  bool
	employees []uint
}

// AssignAll targets every employee of the tenant
func AssignAll() Assignment {
	return Assignment{}
}

// AssignTo targets the listed employees only. Duplicates are dropped.
func AssignTo(employeeIDs ...uint) (Assignment, error) {
	if len(employeeIDs) == 0 {
		return Assignment{}, ErrEmptyAssignment
	}
	ids := slices.Clone(employeeIDs)
	slices.Sort(ids)
	return Assignment{specific: true, employees: slices.Compact(ids)}, nil
}

// Scope returns ALL or SPECIFIC
func (a Assignment) Scope() Scope {
	if a.specific {
		return ScopeSpecific
	}
	return ScopeAll
}

// Includes reports whether employeeID may redeem under this assignment
func (a Assignment) Includes(employeeID uint) bool {
	if !a.specific {
		return true
	}
	_, found := slices.BinarySearch(a.employees, employeeID)
	return found
}

// Employees returns the assigned employee ids, empty for ALL
func (a Assignment) Employees() []uint {
	return slices.Clone(a.employees)
}

// Window is the inclusive period during which a voucher can be redeemed
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within [Start, End]
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Valid reports whether Start is strictly before End
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Voucher Model. DeletedAt enables soft delete so past redemptions keep
// pointing at a readable voucher.
type Voucher struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	TenantID    uint              `gorm:"not null;index:idx_voucher_tenant_status,priority:1" json:"tenant_id"`
	Title       string            `gorm:"size:128;not null" json:"title"`
	Description string            `gorm:"size:1024" json:"description"`
	CoinCost    int64             `gorm:"not null" json:"coin_cost"`
	Scope       Scope             `gorm:"size:16;not null;default:ALL" json:"scope"`
	Assignees   []VoucherAssignee `json:"-"`
	StartsAt    time.Time         `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time         `gorm:"not null" json:"ends_at"`
	Status      VoucherStatus     `gorm:"size:16;not null;index:idx_voucher_tenant_status,priority:2" json:"status"`
	CreatedBy   uint              `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// VoucherAssignee links a SPECIFIC voucher to one employee
type VoucherAssignee struct {
	VoucherID  uint `gorm:"primaryKey;autoIncrement:false"` // Voucher
	EmployeeID uint `gorm:"primaryKey;autoIncrement:false"` // Assigned employee
}

// Assignment rebuilds the closed assignment variant from the stored rows
func (v *Voucher) Assignment() Assignment {
	if v.Scope != ScopeSpecific {
		return AssignAll()
	}
	ids := make([]uint, 0, len(v.Assignees))
	for _, a := range v.Assignees {
		ids = append(ids, a.EmployeeID)
	}
	a, err := AssignTo(ids...)
	if err != nil {
		// A SPECIFIC voucher without rows matches nobody.
		return Assignment{specific: true}
	}
	return a
}

// SetAssignment stores a on the voucher's Scope and Assignees fields
func (v *Voucher) SetAssignment(a Assignment) {
	v.Scope = a.Scope()
	v.Assignees = nil
	for _, id := range a.employees {
		v.Assignees = append(v.Assignees, VoucherAssignee{VoucherID: v.ID, EmployeeID: id})
	}
}

// Window returns the voucher's active window
func (v *Voucher) Window() Window {
	return Window{Start: v.StartsAt, End: v.EndsAt}
}
