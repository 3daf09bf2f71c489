package db

import (
	"fmt"

	"keepsafe/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to Postgres. An empty DSN yields a no-db store: the
// daemon falls back to in-memory repositories, which keeps local development
// and tests free of external services.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

// Migrate creates or updates the schema, including the per-vault access log
// sequence table that backs chain ordering.
func (s *Store) Migrate() error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.AutoMigrate(
		&VaultModel{},
		&SessionModel{},
		&DualKeyRequestModel{},
		&NomineeModel{},
		&EmergencyAccessRequestModel{},
		&AccessLogModel{},
		&DocumentModel{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.DB.Exec(
		"CREATE TABLE IF NOT EXISTS vault_access_seq (vault_id uuid PRIMARY KEY, seq bigint NOT NULL)",
	).Error; err != nil {
		return fmt.Errorf("migrate vault_access_seq: %w", err)
	}
	return nil
}

func (s *Store) Available() bool { return s != nil && s.DB != nil }
