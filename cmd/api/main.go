package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"movieweb/proj/internal/cache"
	"movieweb/proj/internal/clients/omdb"
	"movieweb/proj/internal/clients/openrouter"
	"movieweb/proj/internal/config"
	"movieweb/proj/internal/lib/logger"
	"movieweb/proj/internal/storage"
	"movieweb/proj/internal/storage/memory"
	"movieweb/proj/internal/storage/postgres"
	"movieweb/proj/internal/storage/postgres/models"
)

const version = "1.0.0"

func main() {
	cfgPath := flag.String("config", "config/local.yml", "path to config file")

	flag.Parse()
	cfg := config.MustLoad(*cfgPath)
	log := logger.SetupLogger(cfg.Debug)

	store, err := openStorage(cfg, log)
	if err != nil {
		log.Error("failed to open storage", "errMsg", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	c, err := openCache(cfg)
	if err != nil {
		log.Error("failed to open cache", "errMsg", err.Error())
		os.Exit(1)
	}
	defer c.Close()
	log.Info("cache ready", "driver", cfg.Cache.Driver, "response_cache", cfg.Cache.Enabled)

	app := NewApplication(cfg, log, Deps{
		Storage:  store,
		Cache:    c,
		Metadata: omdb.New(log, cfg.Clients.OMDb.BaseURL, cfg.Clients.OMDb.ApiKey, cfg.Clients.OMDb.Timeout),
		Completer: openrouter.New(
			log,
			cfg.Clients.OpenRouter.BaseURL,
			cfg.Clients.OpenRouter.ApiKey,
			cfg.Clients.OpenRouter.Model,
			cfg.Clients.OpenRouter.Timeout,
		),
	})
	if err := app.serve(); err != nil {
		app.log.Error("shutting down the server", "reason", err.Error())
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Storage.Dsn, cfg.Storage.MaxConns, cfg.Storage.MaxConnIdleTime)
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")
	if cfg.Storage.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
		log.Info("database schema is up to date")
	}
	return models.NewStorage(db), nil
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Driver == config.CacheDriverRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedis(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, "movieweb:")
	}
	return cache.NewMemory(time.Minute), nil
}
