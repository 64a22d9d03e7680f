package persistence

import (
	"context"
	"database/sql"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"threadlytics/internal/config"
	"threadlytics/internal/core"
)

type DB struct {
	Logger *slog.Logger
	Config *config.Config

	db *gorm.DB
}

func (db *DB) Model(a any) *gorm.DB {
	return db.db.Model(a)
}

func (db *DB) Init(_ context.Context) error {
	db.Logger = db.Logger.With("component", "persistence.DB")

	if db.Config.DatabaseURL == "" {
		return ErrNoDatabaseURL
	}

	gormDB, err := gorm.Open(postgres.Open(db.Config.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	db.db = gormDB

	if err := db.db.AutoMigrate(&core.ThreadModel{}); err != nil {
		return err
	}
	db.Logger.Info("Database schema migrated")

	return nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) DB() (*sql.DB, error) {
	return db.db.DB()
}

func (db *DB) Shutdown(_ context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
