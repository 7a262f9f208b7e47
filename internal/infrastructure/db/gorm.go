package db

import (
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	loanDomain "invoice-financer/internal/domain/loan"
	vaultDomain "invoice-financer/internal/domain/vault"
	"invoice-financer/internal/logging"
)

func OpenGorm(dsn string, log *slog.Logger) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), log)
}

// OpenGormWithDialector opens, sizes the pool and pings before returning.
func OpenGormWithDialector(dial gorm.Dialector, log *slog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// pinged once below, after the pool is sized
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	logging.OrDefault(log).Info("gorm: connected")
	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&loanDomain.LoanRequest{},
		&vaultDomain.Vault{},
		&vaultDomain.LenderPosition{},
		&vaultDomain.Repayment{},
	)
}
