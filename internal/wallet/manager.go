// Package wallet owns employee coin balances.
//
// Every balance change runs through Manager.WithWallet: the wallet's lock is
// taken, a database transaction is opened, the wallet row is read FOR UPDATE,
// and the ledger entry and the wallet totals are written in that same
// transaction. Nothing reads a balance for a decision outside it.
package wallet

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"coin_wallet/internal/domain"
	"coin_wallet/internal/lock"
	"coin_wallet/internal/notify"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Manager applies credits and debits to employee wallets
type Manager struct {
	db       *gorm.DB
	locker   lock.Locker
	notifier notify.Sink
	rdb      redis.UniversalClient
	cacheTTL time.Duration
	lockWait time.Duration
	now      func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLocker replaces the in-process wallet lock, e.g. with lock.Redis
func WithLocker(l lock.Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithNotifier sets where post-commit notifications go
func WithNotifier(s notify.Sink) Option {
	return func(m *Manager) { m.notifier = s }
}

// WithCache enables Redis caching of wallet reads
func WithCache(rdb redis.UniversalClient, ttl time.Duration) Option {
	return func(m *Manager) {
		m.rdb = rdb
		m.cacheTTL = ttl
	}
}

// WithLockWait bounds how long an operation waits for the wallet lock.
// Zero waits as long as the caller's context allows.
func WithLockWait(d time.Duration) Option {
	return func(m *Manager) { m.lockWait = d }
}

// WithClock overrides time.Now for transaction timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(db *gorm.DB, opts ...Option) *Manager {
	m := &Manager{
		db:       db,
		locker:   lock.NewKeyed(),
		notifier: notify.Discard{},
		cacheTTL: time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's clock reading
func (m *Manager) Now() time.Time {
	return m.now()
}

func walletKey(employeeID uint) string {
	return "wallet:" + strconv.FormatUint(uint64(employeeID), 10)
}

// Session is a wallet locked for update inside an open database transaction.
// It is only valid during the callback passed to WithWallet.
type Session struct {
	tx      *gorm.DB
	wallet  *domain.Wallet
	now     time.Time
	entries []domain.Transaction
}

// DB returns the transaction handle; reads made through it see the same
// snapshot the balance checks use.
func (s *Session) DB() *gorm.DB { return s.tx }

// Wallet returns a copy of the locked wallet with this session's changes applied
func (s *Session) Wallet() domain.Wallet { return *s.wallet }

// Available returns the spendable balance
func (s *Session) Available() int64 { return s.wallet.Available() }

// Now is the instant the session started; it stamps every entry it writes
func (s *Session) Now() time.Time { return s.now }

// HasRedeemed reports whether the wallet owner already has a debit for voucherID
func (s *Session) HasRedeemed(voucherID uint) (bool, error) {
	return hasVoucherDebit(s.tx, s.wallet.EmployeeID, voucherID)
}

// Credit appends a credit entry and raises TotalEarned
func (s *Session) Credit(amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	entry := s.newEntry(domain.TxCredit, amount, description, nil)
	if err := appendEntry(s.tx, entry); err != nil {
		return nil, err
	}
	err := s.tx.Model(&domain.Wallet{}).
		Where("id = ?", s.wallet.ID).
		Updates(map[string]any{
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"updated_at":   s.now,
		}).Error
	if err != nil {
		return nil, err
	}
	s.wallet.TotalEarned += amount
	s.wallet.UpdatedAt = s.now
	s.entries = append(s.entries, *entry)
	return entry, nil
}

// Debit appends a debit entry and raises TotalSpent. The UPDATE repeats the
// balance check so the row can never end with TotalSpent above TotalEarned.
func (s *Session) Debit(amount int64, description string, voucherID *uint) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if s.wallet.Available() < amount {
		return nil, s.shortfall(amount)
	}
	entry := s.newEntry(domain.TxDebit, amount, description, voucherID)
	if err := appendEntry(s.tx, entry); err != nil {
		return nil, err
	}
	res := s.tx.Model(&domain.Wallet{}).
		Where("id = ? AND total_earned - total_spent >= ?", s.wallet.ID, amount).
		Updates(map[string]any{
			"total_spent": gorm.Expr("total_spent + ?", amount),
			"updated_at":  s.now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.shortfall(amount)
	}
	s.wallet.TotalSpent += amount
	s.wallet.UpdatedAt = s.now
	s.entries = append(s.entries, *entry)
	return entry, nil
}

func (s *Session) shortfall(amount int64) error {
	return &domain.InsufficientBalanceError{
		EmployeeID: s.wallet.EmployeeID,
		Available:  s.wallet.Available(),
		Requested:  amount,
	}
}

func (s *Session) newEntry(kind domain.TxKind, amount int64, description string, voucherID *uint) *domain.Transaction {
	return &domain.Transaction{
		TenantID:    s.wallet.TenantID,
		EmployeeID:  s.wallet.EmployeeID,
		VoucherID:   voucherID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   s.now,
	}
}

// WithWallet runs fn against the employee's wallet under the wallet lock and
// inside one database transaction, creating the wallet if needed. If fn
// returns an error nothing it wrote is kept. After a successful commit the
// cached reads are invalidated and a notification is sent per entry.
func (m *Manager) WithWallet(ctx context.Context, tenantID, employeeID uint, fn func(*Session) error) error {
	lockCtx := ctx
	if m.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, m.lockWait)
		defer cancel()
	}
	unlock, err := m.locker.Lock(lockCtx, walletKey(employeeID))
	if err != nil {
		return fmt.Errorf("lock wallet of employee %d: %w", employeeID, err)
	}
	defer unlock()

	var s *Session
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := m.now()
		w, err := lockWallet(tx, tenantID, employeeID, now)
		if err != nil {
			return err
		}
		s = &Session{tx: tx, wallet: w, now: now}
		return fn(s)
	})
	if err != nil {
		return err
	}
	m.afterCommit(ctx, s)
	return nil
}

// GetOrCreateWallet returns the employee's wallet, creating an empty one if absent
func (m *Manager) GetOrCreateWallet(ctx context.Context, tenantID, employeeID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	err := m.WithWallet(ctx, tenantID, employeeID, func(s *Session) error {
		w = s.Wallet()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AvailableBalance returns TotalEarned minus TotalSpent
func AvailableBalance(w *domain.Wallet) int64 {
	if w == nil {
		return 0
	}
	return w.Available()
}

// ApplyCredit adds amount coins to the employee's wallet
func (m *Manager) ApplyCredit(ctx context.Context, tenantID, employeeID uint, amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var entry *domain.Transaction
	err := m.WithWallet(ctx, tenantID, employeeID, func(s *Session) error {
		var err error
		entry, err = s.Credit(amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplyDebit spends amount coins from the employee's wallet. voucherID may be nil.
func (m *Manager) ApplyDebit(ctx context.Context, tenantID, employeeID uint, amount int64, description string, voucherID *uint) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var entry *domain.Transaction
	err := m.WithWallet(ctx, tenantID, employeeID, func(s *Session) error {
		var err error
		entry, err = s.Debit(amount, description, voucherID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (m *Manager) afterCommit(ctx context.Context, s *Session) {
	if len(s.entries) == 0 {
		return
	}
	m.invalidate(ctx, s.wallet.TenantID, s.wallet.EmployeeID)

	w := s.wallet
	for _, e := range s.entries {
		logrus.WithFields(logrus.Fields{
			"tenant_id":    e.TenantID,
			"employee_id":  e.EmployeeID,
			"reference":    e.Reference,
			"kind":         e.Kind,
			"amount":       e.Amount,
			"voucher_id":   e.VoucherID,
			"total_earned": w.TotalEarned,
			"total_spent":  w.TotalSpent,
		}).Info("Ledger transaction committed")

		if err := m.notifier.Notify(ctx, notificationFor(e, w.Available())); err != nil {
			logrus.WithFields(logrus.Fields{
				"employee_id": e.EmployeeID,
				"reference":   e.Reference,
				"error":       err.Error(),
			}).Warn("Failed to notify employee")
		}
	}
}

func notificationFor(e domain.Transaction, available int64) notify.Notification {
	n := notify.Notification{
		EmployeeID: e.EmployeeID,
		TenantID:   e.TenantID,
		Severity:   notify.SeverityInfo,
		Category:   notify.CategoryCoins,
		Metadata: map[string]any{
			"reference": e.Reference,
			"amount":    e.Amount,
			"available": available,
		},
		CreatedAt: e.CreatedAt,
	}
	switch {
	case e.Kind == domain.TxCredit:
		n.Title = "Coins received"
		n.Message = fmt.Sprintf("%d coins were added to your wallet: %s", e.Amount, e.Description)
	case e.VoucherID != nil:
		n.Category = notify.CategoryVoucher
		n.Title = "Voucher redeemed"
		n.Message = fmt.Sprintf("You spent %d coins: %s", e.Amount, e.Description)
		n.Metadata["voucher_id"] = *e.VoucherID
	default:
		n.Title = "Coins spent"
		n.Message = fmt.Sprintf("%d coins were deducted from your wallet: %s", e.Amount, e.Description)
	}
	return n
}
