package db

import (
	"fmt"

	"coin_wallet/internal/config" // Custom package for configuration

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // PostgreSQL driver for GORM
	"gorm.io/driver/sqlite"   // SQLite driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger levels
)

// Open connects to the configured database.
// TranslateError turns driver-specific unique violations into gorm.ErrDuplicatedKey,
// which the ledger relies on to detect a double redemption.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN() + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	// Wallets and ledger rows reference employees by id only; a wallet may be
	// created before the employee row is visible to this database.
	gormCfg := &gorm.Config{TranslateError: true, DisableForeignKeyConstraintWhenMigrating: true}
	if cfg.IsProd {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if cfg.DBDriver == config.DriverSQLite {
		// SQLite has a single writer; one connection keeps transactions from
		// tripping over each other's locks.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
