package voucher

import (
	"context"
	"errors"

	"coin_wallet/internal/domain"
	"coin_wallet/internal/wallet"

	"github.com/sirupsen/logrus"
)

// State of a redemption attempt. An attempt moves Requested -> Validating ->
// Committed or Rejected and is never retried internally.
type State string

const (
	StateRequested  State = "requested"
	StateValidating State = "validating"
	StateCommitted  State = "committed"
	StateRejected   State = "rejected"
)

// Receipt describes a committed redemption
type Receipt struct {
	State            State  `json:"state"`
	VoucherID        uint   `json:"voucher_id"`
	CoinsUsed        int64  `json:"coins_used"`
	RemainingBalance int64  `json:"remaining_balance"`
	TransactionID    uint   `json:"transaction_id"`
	Reference        string `json:"reference"`
}

// EmployeeVoucher is a voucher as seen by one employee
type EmployeeVoucher struct {
	domain.Voucher
	IsRedeemed     bool          `json:"is_redeemed"`
	CanRedeem      bool          `json:"can_redeem"`
	Reason         domain.Reason `json:"reason,omitempty"`
	AvailableCoins int64         `json:"available_coins"`
}

// Redeemer exchanges coins for vouchers
type Redeemer struct {
	catalog *Catalog
	wallets *wallet.Manager
}

func NewRedeemer(catalog *Catalog, wallets *wallet.Manager) *Redeemer {
	return &Redeemer{catalog: catalog, wallets: wallets}
}

// Redeem spends the voucher's cost from the employee's wallet. Voucher
// lookup, eligibility and the debit share the wallet's lock and database
// transaction, so either the debit and its ledger entry are both committed
// or nothing is.
func (r *Redeemer) Redeem(ctx context.Context, tenantID, employeeID, voucherID uint) (*Receipt, error) {
	log := logrus.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"employee_id": employeeID,
		"voucher_id":  voucherID,
	})
	log.WithField("state", StateRequested).Debug("Redemption requested")

	var receipt *Receipt
	err := r.wallets.WithWallet(ctx, tenantID, employeeID, func(s *wallet.Session) error {
		log.WithField("state", StateValidating).Debug("Validating redemption")

		v, err := get(s.DB(), tenantID, voucherID)
		if err != nil {
			return err
		}
		redeemed, err := s.HasRedeemed(v.ID)
		if err != nil {
			return err
		}
		decision := Evaluate(v, Facts{
			EmployeeID:       employeeID,
			Now:              s.Now(),
			AlreadyRedeemed:  redeemed,
			AvailableBalance: s.Available(),
		})
		if !decision.Eligible {
			return decision.Err(v.ID)
		}

		entry, err := s.Debit(v.CoinCost, "Redeemed voucher: "+v.Title, &v.ID)
		if err != nil {
			return err
		}
		receipt = &Receipt{
			State:            StateCommitted,
			VoucherID:        v.ID,
			CoinsUsed:        v.CoinCost,
			RemainingBalance: s.Available(),
			TransactionID:    entry.ID,
			Reference:        entry.Reference,
		}
		return nil
	})
	if err != nil {
		err = translate(err, voucherID)
		if domain.IsClientError(err) || errors.Is(err, domain.ErrVoucherNotFound) {
			log.WithFields(logrus.Fields{"state": StateRejected, "reason": err.Error()}).Info("Redemption rejected")
		} else {
			log.WithFields(logrus.Fields{"state": StateRejected, "error": err.Error()}).Error("Redemption failed")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"state":             StateCommitted,
		"coins_used":        receipt.CoinsUsed,
		"remaining_balance": receipt.RemainingBalance,
	}).Info("Voucher redeemed")
	return receipt, nil
}

// translate maps failures of the commit step onto the redemption taxonomy.
// Losing the race on the ledger's unique index means the employee already
// redeemed, from the loser's point of view.
func translate(err error, voucherID uint) error {
	switch {
	case errors.Is(err, domain.ErrRedemptionConflict):
		return &domain.NotEligibleError{VoucherID: voucherID, Reason: domain.ReasonAlreadyRedeemed, Cause: err}
	case errors.Is(err, domain.ErrInsufficientBalance) && !errors.Is(err, domain.ErrVoucherNotEligible):
		return &domain.NotEligibleError{VoucherID: voucherID, Reason: domain.ReasonInsufficientBalance, Cause: err}
	}
	return err
}

// ListForEmployee returns the Active vouchers targeting the employee, each
// annotated with whether it was redeemed and whether it can be redeemed now.
// The annotation is advisory; Redeem re-evaluates under the wallet lock.
func (r *Redeemer) ListForEmployee(ctx context.Context, tenantID, employeeID uint) ([]EmployeeVoucher, error) {
	vs, err := r.catalog.VisibleTo(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	w, err := r.wallets.Wallet(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	redeemed, err := r.wallets.RedeemedVoucherIDs(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	now := r.wallets.Now()
	available := wallet.AvailableBalance(w)
	out := make([]EmployeeVoucher, 0, len(vs))
	for i := range vs {
		v := &vs[i]
		d := Evaluate(v, Facts{
			EmployeeID:       employeeID,
			Now:              now,
			AlreadyRedeemed:  redeemed[v.ID],
			AvailableBalance: available,
		})
		out = append(out, EmployeeVoucher{
			Voucher:        *v,
			IsRedeemed:     redeemed[v.ID],
			CanRedeem:      d.Eligible,
			Reason:         d.Reason,
			AvailableCoins: available,
		})
	}
	return out, nil
}
