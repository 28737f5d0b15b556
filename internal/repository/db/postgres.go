package db

import (
	"fmt"
	"time"

	"user_accounts/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresOptions tunes the GORM connection.
type PostgresOptions struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

// OpenPostgres connects through GORM and creates the user and
// account_events tables if they are missing.
func OpenPostgres(dsn string, opts PostgresOptions) (*gorm.DB, error) {
	cfg := &gorm.Config{
		// map driver errors (23505) to gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if opts.LogSQL {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := gdb.AutoMigrate(&repository.UserRecord{}, &repository.AuditRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return gdb, nil
}
