package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anis2566/monorepo-new-sub002/internal/cache"
	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories/memory"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories/postgres"
	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/sms"
	"github.com/anis2566/monorepo-new-sub002/internal/storage"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"github.com/anis2566/monorepo-new-sub002/pkg"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app owns the process-wide infrastructure shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	redis     *redis.Client
	publisher events.EventPublisher
	services  services.ServiceManager
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:       cfg.Log.Level,
		Development: !cfg.IsProduction(),
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	var repo repositories.Repository
	if cfg.DatabaseURL != "" {
		a.db, err = pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		repo = postgres.NewRepository(a.db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repository")
		repo = memory.NewRepository()
	}

	cacheService := cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		a.redis, err = pkg.NewRedisClient(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		cacheService = cache.NewRedisCache(a.redis, logger)
	} else {
		logger.Warn("REDIS_URL not set, using in-process cache")
	}

	a.publisher, err = cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	store, err := storage.NewObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.services = services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Cache:     cacheService,
		SMS:       sms.NewDispatcher(cfg.SMS, logger),
		Publisher: a.publisher,
		Store:     store,
		Validator: validator.New(),
		Config:    cfg,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) Close() {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Error while closing resources", "error", err)
	}
}
