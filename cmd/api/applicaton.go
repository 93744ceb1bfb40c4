package main

import (
	"context"
	"log/slog"
	"sync/atomic"

	"movieweb/proj/internal/cache"
	"movieweb/proj/internal/config"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/decoder"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/services"
	"movieweb/proj/internal/services/ai"
	"movieweb/proj/internal/storage"

	govalidator "github.com/go-playground/validator/v10"
)

// MetadataProvider looks movies up by title or by external id.
type MetadataProvider interface {
	SearchByTitle(ctx context.Context, title string, year *int32) (*models.ProviderMovie, error)
	GetByID(ctx context.Context, externalID string) (*models.ProviderMovie, error)
}

type Application struct {
	cfg       *config.Config
	log       *slog.Logger
	Http      *Http
	Services  *services.Services
	metadata  MetadataProvider
	cache     cache.Cache
	storage   storage.Storage
	validator *govalidator.Validate
	decoder   *decoder.URLDecoder
	// cacheGen counts committed writes seen by invalidateCache.
	cacheGen atomic.Uint64
}

type Deps struct {
	Storage   storage.Storage
	Cache     cache.Cache
	Metadata  MetadataProvider
	Completer ai.Completer
}

func NewApplication(cfg *config.Config, log *slog.Logger, deps Deps) *Application {
	v := validator.New()
	return &Application{
		cfg:       cfg,
		log:       log,
		validator: v,
		decoder:   decoder.New(),
		metadata:  deps.Metadata,
		cache:     deps.Cache,
		storage:   deps.Storage,
		Services:  services.New(log, cfg, deps.Storage, deps.Cache, deps.Completer, v),
		Http: &Http{
			log: log,
			cfg: cfg,
		},
	}
}
