package wallet

import (
	"context"
	"fmt"
	"strconv"

	"coin_wallet/internal/domain"
	"coin_wallet/internal/notify"
	"coin_wallet/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecentLimit is how many transactions a summary carries
const RecentLimit = 20

// Summary is an employee's balance with the latest ledger entries
type Summary struct {
	EmployeeID       uint                 `json:"employee_id"`
	TotalEarned      int64                `json:"total_earned"`
	TotalSpent       int64                `json:"total_spent"`
	AvailableBalance int64                `json:"available_balance"`
	Transactions     []domain.Transaction `json:"transactions"`
}

// Page is one page of ledger entries
type Page struct {
	Transactions []domain.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"total_pages"`
}

// Cached reads are keyed by the version of the data they were built from.
// A commit changes the version, so a read that raced with the commit can
// only fill a key that no later read asks for.

func summaryPrefix(tenantID, employeeID uint) string {
	return "wallet:tenant:" + strconv.FormatUint(uint64(tenantID), 10) +
		":employee:" + strconv.FormatUint(uint64(employeeID), 10) + ":summary:"
}

// walletVersion changes with every balance change: each credit or debit
// raises one of the totals, and Reconcile stamps UpdatedAt.
func walletVersion(w *domain.Wallet) string {
	return strconv.FormatInt(w.TotalEarned, 10) + "." +
		strconv.FormatInt(w.TotalSpent, 10) + "." +
		strconv.FormatInt(w.UpdatedAt.UnixMicro(), 10)
}

func employeeHistoryPrefix(employeeID uint) string {
	return "txhistory:employee:" + strconv.FormatUint(uint64(employeeID), 10) + ":"
}

func tenantHistoryPrefix(tenantID uint) string {
	return "txhistory:tenant:" + strconv.FormatUint(uint64(tenantID), 10) + ":"
}

func pageSuffix(version uint, page, pageSize int) string {
	return "v:" + strconv.FormatUint(uint64(version), 10) +
		":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// Wallet reads the employee's wallet without creating it. A missing wallet
// reads as a zero wallet.
func (m *Manager) Wallet(ctx context.Context, tenantID, employeeID uint) (*domain.Wallet, error) {
	w, err := findWallet(m.db.WithContext(ctx), employeeID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return &domain.Wallet{TenantID: tenantID, EmployeeID: employeeID}, nil
	}
	if w.TenantID != tenantID {
		return nil, domain.ErrWalletTenantMismatch
	}
	return w, nil
}

// RedeemedVoucherIDs returns the set of vouchers the employee has redeemed
func (m *Manager) RedeemedVoucherIDs(ctx context.Context, employeeID uint) (map[uint]bool, error) {
	ids, err := redeemedVoucherIDs(m.db.WithContext(ctx), employeeID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Summary returns totals and the most recent transactions. The wallet row is
// always read so the tenant check and the cache version come from the
// current totals; the recent transactions are served from Redis when cached.
func (m *Manager) Summary(ctx context.Context, tenantID, employeeID uint) (*Summary, error) {
	w, err := m.Wallet(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	key := summaryPrefix(tenantID, employeeID) + walletVersion(w)
	var cached Summary
	if found, err := utils.GetCache(ctx, m.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}

	txs, _, err := listEntries(m.db.WithContext(ctx), byEmployee(employeeID), 1, RecentLimit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	s := &Summary{
		EmployeeID:       employeeID,
		TotalEarned:      w.TotalEarned,
		TotalSpent:       w.TotalSpent,
		AvailableBalance: w.Available(),
		Transactions:     txs,
	}
	_ = utils.SetCache(ctx, m.rdb, key, s, m.cacheTTL)
	return s, nil
}

// History returns one page of the employee's transactions, newest first
func (m *Manager) History(ctx context.Context, tenantID, employeeID uint, page, pageSize int) (*Page, error) {
	return m.page(ctx, employeeHistoryPrefix(employeeID), page, pageSize, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID)
	})
}

// TenantHistory returns one page of the whole tenant's ledger, newest first
func (m *Manager) TenantHistory(ctx context.Context, tenantID uint, page, pageSize int) (*Page, error) {
	return m.page(ctx, tenantHistoryPrefix(tenantID), page, pageSize, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	})
}

// page serves one history page. The ledger is append-only, so its highest
// transaction id in scope identifies the page contents.
func (m *Manager) page(ctx context.Context, prefix string, page, pageSize int, scope func(*gorm.DB) *gorm.DB) (*Page, error) {
	db := m.db.WithContext(ctx)
	version, err := ledgerVersion(db, scope)
	if err != nil {
		return nil, err
	}
	key := prefix + pageSuffix(version, page, pageSize)
	var cached Page
	if found, err := utils.GetCache(ctx, m.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}
	txs, total, err := listEntries(db, scope, page, pageSize)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	p := &Page{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize,
	}
	_ = utils.SetCache(ctx, m.rdb, key, p, m.cacheTTL)
	return p, nil
}

func byEmployee(employeeID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("employee_id = ?", employeeID)
	}
}

// invalidate drops the cached reads of superseded versions. Correctness does
// not depend on it; it only frees the keys before their TTL.
func (m *Manager) invalidate(ctx context.Context, tenantID, employeeID uint) {
	if m.rdb == nil {
		return
	}
	for _, prefix := range []string{
		summaryPrefix(tenantID, employeeID),
		employeeHistoryPrefix(employeeID),
		tenantHistoryPrefix(tenantID),
	} {
		if err := utils.DeleteCachePrefix(ctx, m.rdb, prefix); err != nil {
			logrus.WithError(err).WithField("prefix", prefix).Warn("Failed to invalidate wallet cache")
		}
	}
}

// Reconciliation compares a wallet's cached totals with its ledger
type Reconciliation struct {
	Before  domain.Wallet `json:"before"`
	After   domain.Wallet `json:"after"`
	Drifted bool          `json:"drifted"`
}

// Reconcile recomputes the wallet totals from the ledger under the wallet
// lock and overwrites them if they drifted.
func (m *Manager) Reconcile(ctx context.Context, tenantID, employeeID uint) (*Reconciliation, error) {
	var r Reconciliation
	err := m.WithWallet(ctx, tenantID, employeeID, func(s *Session) error {
		r.Before = s.Wallet()
		earned, spent, err := ledgerTotals(s.tx, employeeID)
		if err != nil {
			return err
		}
		if earned == s.wallet.TotalEarned && spent == s.wallet.TotalSpent {
			r.After = r.Before
			return nil
		}
		r.Drifted = true
		err = s.tx.Model(&domain.Wallet{}).
			Where("id = ?", s.wallet.ID).
			Updates(map[string]any{"total_earned": earned, "total_spent": spent, "updated_at": s.now}).Error
		if err != nil {
			return err
		}
		s.wallet.TotalEarned, s.wallet.TotalSpent, s.wallet.UpdatedAt = earned, spent, s.now
		r.After = s.Wallet()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.Drifted {
		m.invalidate(ctx, tenantID, employeeID)
		entry := logrus.WithFields(logrus.Fields{
			"employee_id":         employeeID,
			"cached_total_earned": r.Before.TotalEarned,
			"cached_total_spent":  r.Before.TotalSpent,
			"ledger_total_earned": r.After.TotalEarned,
			"ledger_total_spent":  r.After.TotalSpent,
		})
		if r.After.TotalSpent > r.After.TotalEarned {
			entry.Error("Ledger spends more than it earns")
		} else {
			entry.Warn("Wallet totals drifted from ledger; repaired")
		}
		if err := m.notifier.Notify(ctx, driftNotification(r)); err != nil {
			logrus.WithFields(logrus.Fields{
				"employee_id": employeeID,
				"error":       err.Error(),
			}).Warn("Failed to notify employee")
		}
	}
	return &r, nil
}

func driftNotification(r Reconciliation) notify.Notification {
	return notify.Notification{
		EmployeeID: r.After.EmployeeID,
		TenantID:   r.After.TenantID,
		Severity:   notify.SeverityWarning,
		Category:   notify.CategoryCoins,
		Title:      "Wallet balance corrected",
		Message: fmt.Sprintf("Your available balance was corrected from %d to %d coins",
			r.Before.Available(), r.After.Available()),
		Metadata: map[string]any{
			"previous_total_earned": r.Before.TotalEarned,
			"previous_total_spent":  r.Before.TotalSpent,
			"total_earned":          r.After.TotalEarned,
			"total_spent":           r.After.TotalSpent,
		},
		CreatedAt: r.After.UpdatedAt,
	}
}
