package wallet

import (
	"errors"
	"time"

	"coin_wallet/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The ledger is append-only: these helpers insert and read transactions but
// nothing in the package updates or deletes one.

// appendEntry inserts tx. A second voucher debit for the same employee hits
// idx_tx_employee_voucher and comes back as domain.ErrRedemptionConflict.
func appendEntry(db *gorm.DB, tx *domain.Transaction) error {
	if tx.Reference == "" {
		tx.Reference = uuid.NewString()
	}
	if err := db.Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && tx.VoucherID != nil {
			return domain.ErrRedemptionConflict
		}
		return err
	}
	return nil
}

// hasVoucherDebit reports whether the employee already spent coins on voucherID
func hasVoucherDebit(db *gorm.DB, employeeID, voucherID uint) (bool, error) {
	var n int64
	err := db.Model(&domain.Transaction{}).
		Where("employee_id = ? AND voucher_id = ? AND kind = ?", employeeID, voucherID, domain.TxDebit).
		Count(&n).Error
	return n > 0, err
}

// redeemedVoucherIDs lists every voucher the employee has a debit for
func redeemedVoucherIDs(db *gorm.DB, employeeID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&domain.Transaction{}).
		Where("employee_id = ? AND voucher_id IS NOT NULL AND kind = ?", employeeID, domain.TxDebit).
		Pluck("voucher_id", &ids).Error
	return ids, err
}

// ledgerTotals sums the employee's credits and debits from the log itself
func ledgerTotals(db *gorm.DB, employeeID uint) (earned, spent int64, err error) {
	var rows []struct {
		Kind  domain.TxKind
		Total int64
	}
	err = db.Model(&domain.Transaction{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Where("employee_id = ?", employeeID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Kind {
		case domain.TxCredit:
			earned = r.Total
		case domain.TxDebit:
			spent = r.Total
		}
	}
	return earned, spent, nil
}

// listEntries returns one page of transactions, newest first
func listEntries(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, page, pageSize int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := scope(db.Model(&domain.Transaction{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	err := scope(db.Model(&domain.Transaction{})).
		Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}

// ledgerVersion returns the highest transaction id in scope, 0 for none
func ledgerVersion(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) (uint, error) {
	var version uint
	err := scope(db.Model(&domain.Transaction{})).
		Select("COALESCE(MAX(id), 0)").
		Scan(&version).Error
	return version, err
}

// findWallet loads the employee's wallet without creating it
func findWallet(db *gorm.DB, employeeID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	err := db.Where("employee_id = ?", employeeID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// lockWallet returns the employee's wallet row locked for update, creating it
// first when absent. Concurrent creators race on the employee_id unique index
// and the loser's insert is ignored.
func lockWallet(db *gorm.DB, tenantID, employeeID uint, now time.Time) (*domain.Wallet, error) {
	w, err := selectForUpdate(db, employeeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := domain.Wallet{TenantID: tenantID, EmployeeID: employeeID, CreatedAt: now, UpdatedAt: now}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}},
			DoNothing: true,
		}).Create(&fresh).Error
		if err != nil {
			return nil, err
		}
		w, err = selectForUpdate(db, employeeID)
	}
	if err != nil {
		return nil, err
	}
	if w.TenantID != tenantID {
		return nil, domain.ErrWalletTenantMismatch
	}
	return w, nil
}

func selectForUpdate(db *gorm.DB, employeeID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employee_id = ?", employeeID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}
