package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"prepple/interview-api/internal/config"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/repositories"
	"prepple/interview-api/internal/services"
)

// components holds everything the subcommands share. local is nil when
// résumés live in S3; index is nil when QDRANT_URL is empty.
type components struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	rooms      repositories.RoomRepository
	candidates repositories.CandidateRepository
	reports    repositories.ReportRepository
	store      services.ResumeStore
	local      services.StorageService
	gemini     services.GeminiService
	index      services.ReportIndex
}

// bootstrap loads and validates configuration, then connects to every
// backing service. Any failure aborts startup.
func bootstrap(ctx context.Context) (*components, error) {
	cfg := config.Load(viper.GetViper())

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	zl.Info("config loaded", zap.String("env", cfg.Server.Env), zap.String("storage", cfg.Storage.Backend))

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		return nil, err
	}

	c := &components{
		cfg:        cfg,
		log:        zl,
		db:         db,
		rooms:      repositories.NewRoomRepository(db),
		candidates: repositories.NewCandidateRepository(db),
		reports:    repositories.NewReportRepository(db),
	}

	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		store, err := services.NewS3Store(
			cfg.Storage.S3.Endpoint,
			cfg.Storage.S3.AccessKey,
			cfg.Storage.S3.SecretKey,
			cfg.Storage.S3.Region,
			cfg.Storage.Bucket,
			cfg.Storage.S3.UseSSL,
		)
		if err != nil {
			return nil, err
		}
		c.store = store
	default:
		local := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.Bucket, cfg.Server.PublicURL, cfg.Storage.SigningSecret)
		if err := local.EnsureUploadDir(); err != nil {
			return nil, err
		}
		c.store = local
		c.local = local
	}

	c.gemini, err = services.NewGeminiService(ctx, cfg.Gemini, zl)
	if err != nil {
		return nil, err
	}
	zl.Info("gemini client ready", zap.String(logger.FieldModel, c.gemini.Model()))

	if cfg.Qdrant.URL != "" {
		store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, zl)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		if err := store.InitCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant collection: %w", err)
		}
		c.index = services.NewReportIndex(store, c.gemini, zl)
		zl.Info("report search enabled", zap.String("collection", cfg.Qdrant.Collection))
	}

	return c, nil
}

func (c *components) close() {
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
	c.log.Sync()
}
