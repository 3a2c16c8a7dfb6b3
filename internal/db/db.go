package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"museum-stream-backend/config"
	"museum-stream-backend/internal/model"
)

// Init opens the database connection and migrates the tables this service owns.
// The reference and interaction tables belong to the loader and are never altered here.
func Init(ctx context.Context, cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	mode := logger.Silent
	if cfg.LogSQL {
		mode = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info().Msg("running database migrations for staff_subscriptions")
	if err := db.WithContext(ctx).AutoMigrate(&model.StaffSubscription{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
