package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned when a credit or debit amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a debit would spend more than was earned.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrVoucherNotFound is returned when a voucher id does not resolve within the tenant.
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrVoucherNotEligible is the sentinel matched by every NotEligibleError.
	ErrVoucherNotEligible = errors.New("voucher not eligible")

	// ErrWalletTenantMismatch is returned when an employee's wallet belongs to another tenant.
	ErrWalletTenantMismatch = errors.New("wallet belongs to another tenant")

	// ErrRedemptionConflict is returned when the ledger's uniqueness constraint
	// rejects a second debit for the same employee and voucher.
	ErrRedemptionConflict = errors.New("voucher already debited for employee")

	// ErrEmployeeNotFound is returned when an employee id does not resolve within the tenant.
	ErrEmployeeNotFound = errors.New("employee not found")

	ErrEmptyAssignment = errors.New("specific assignment requires at least one employee")
	ErrInvalidWindow   = errors.New("active window start must be before end")
	ErrInvalidCoinCost = errors.New("coin cost must be positive")
	ErrInvalidVoucher  = errors.New("invalid voucher")
)

// Reason explains why a voucher cannot be redeemed
type Reason string

const (
	ReasonInactive            Reason = "inactive"
	ReasonOutsideWindow       Reason = "outside_window"
	ReasonNotAssigned         Reason = "not_assigned"
	ReasonAlreadyRedeemed     Reason = "already_redeemed"
	ReasonInsufficientBalance Reason = "insufficient_balance"
)

// NotEligibleError carries the first failed eligibility rule.
// A shortage of coins also matches ErrInsufficientBalance.
type NotEligibleError struct {
	VoucherID uint
	Reason    Reason
	Cause     error // set when a storage conflict produced the rejection
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("voucher %d not eligible: %s", e.VoucherID, e.Reason)
}

func (e *NotEligibleError) Unwrap() error {
	return e.Cause
}

func (e *NotEligibleError) Is(target error) bool {
	if target == ErrVoucherNotEligible {
		return true
	}
	return target == ErrInsufficientBalance && e.Reason == ReasonInsufficientBalance
}

// InsufficientBalanceError details a rejected debit
type InsufficientBalanceError struct {
	EmployeeID uint
	Available  int64
	Requested  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// ReasonOf extracts the eligibility reason from err, if any
func ReasonOf(err error) (Reason, bool) {
	var ne *NotEligibleError
	if errors.As(err, &ne) {
		return ne.Reason, true
	}
	return "", false
}

// IsClientError reports whether err was caused by the request rather than the system
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrVoucherNotEligible) ||
		errors.Is(err, ErrEmptyAssignment) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidCoinCost) ||
		errors.Is(err, ErrInvalidVoucher)
}
