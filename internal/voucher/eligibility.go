package voucher

import (
	"time"

	"coin_wallet/internal/domain"
)

// Facts are the pre-fetched inputs of an eligibility decision
type Facts struct {
	EmployeeID       uint
	Now              time.Time
	AlreadyRedeemed  bool
	AvailableBalance int64
}

// Decision is the outcome of Evaluate. Reason is empty when Eligible.
type Decision struct {
	Eligible bool          `json:"eligible"`
	Reason   domain.Reason `json:"reason,omitempty"`
}

// Evaluate decides whether an employee may redeem v. Rules run in a fixed
// order and the first failing one is reported: status, window, assignment,
// previous redemption, balance. It does no I/O.
func Evaluate(v *domain.Voucher, f Facts) Decision {
	switch {
	case v.Status != domain.VoucherActive:
		return reject(domain.ReasonInactive)
	case !v.Window().Contains(f.Now):
		return reject(domain.ReasonOutsideWindow)
	case !v.Assignment().Includes(f.EmployeeID):
		return reject(domain.ReasonNotAssigned)
	case f.AlreadyRedeemed:
		return reject(domain.ReasonAlreadyRedeemed)
	case f.AvailableBalance < v.CoinCost:
		return reject(domain.ReasonInsufficientBalance)
	}
	return Decision{Eligible: true}
}

func reject(r domain.Reason) Decision {
	return Decision{Reason: r}
}

// Err converts a negative decision into a *domain.NotEligibleError
func (d Decision) Err(voucherID uint) error {
	if d.Eligible {
		return nil
	}
	return &domain.NotEligibleError{VoucherID: voucherID, Reason: d.Reason}
}
