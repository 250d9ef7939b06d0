package db

import (
	"coin_wallet/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"gorm.io/gorm" // GORM ORM library
)

// Models lists every table owned by the service
func Models() []any {
	return []any{
		&domain.Employee{},
		&domain.Wallet{},
		&domain.Transaction{},
		&domain.Voucher{},
		&domain.VoucherAssignee{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// PromoteAdmin grants the admin role to username
func PromoteAdmin(db *gorm.DB, username string) error {
	res := db.Model(&domain.Employee{}).Where("username = ?", username).Update("role", domain.RoleAdmin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEmployeeNotFound
	}
	logrus.WithField("username", username).Info("Employee promoted to admin")
	return nil
}
