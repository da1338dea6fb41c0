package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// InitDatabase opens the postgres pool and migrates the rooms, candidates
// and reports tables.
func InitDatabase(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	gormLevel := logger.Silent
	if cfg.Server.Env == "development" && cfg.Log.Debug {
		gormLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", apperr.ErrPersistence, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get connection pool: %w", apperr.ErrPersistence, err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if err := db.AutoMigrate(
		&models.Room{},
		&models.Candidate{},
		&models.Report{},
	); err != nil {
		return nil, fmt.Errorf("%w: failed to migrate database: %w", apperr.ErrPersistence, err)
	}

	log.Info("database migration completed")

	return db, nil
}
