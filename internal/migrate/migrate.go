// Package migrate owns the relational schema and applies it with GORM.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table in creation order.
func Models() []any {
	return []any{&User{}, &Property{}, &PropertyInterest{}}
}

// Open connects GORM to dsn. GORM logs only warnings and errors.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// Run creates or updates the schema.
func Run(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.L()
	}
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("schema migrated", zap.Int("tables", len(Models())))
	return nil
}

// RunDSN opens a short-lived connection to dsn, migrates, and closes it.
func RunDSN(ctx context.Context, dsn string, logger *zap.Logger) error {
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("gorm sql handle: %w", err)
	}
	defer sqlDB.Close()

	return Run(ctx, db, logger)
}
