package services

import (
	"log/slog"
	"time"

	"movieweb/proj/internal/cache"
	"movieweb/proj/internal/config"
	"movieweb/proj/internal/services/accounts"
	"movieweb/proj/internal/services/ai"
	"movieweb/proj/internal/services/comments"
	"movieweb/proj/internal/services/movielist"
	"movieweb/proj/internal/storage"

	govalidator "github.com/go-playground/validator/v10"
)

// Recommendation history outlives a session token, so it is kept for a week.
const aiHistoryTTL = 7 * 24 * time.Hour

type Services struct {
	Accounts  *accounts.AccountsService
	MovieList *movielist.MovieListService
	Comments  *comments.CommentsService
	AI        *ai.AIService
}

// New wires every service onto one storage. c may be nil when caching is disabled.
func New(
	log *slog.Logger,
	cfg *config.Config,
	storage storage.Storage,
	c cache.Cache,
	completer ai.Completer,
	validator *govalidator.Validate,
) *Services {
	return &Services{
		Accounts:  accounts.New(log, storage, validator, cfg.Auth.Secret, cfg.Auth.TokenTTL),
		MovieList: movielist.New(log, storage, validator),
		Comments:  comments.New(log, storage, validator),
		AI:        ai.New(log, completer, c, aiHistoryTTL),
	}
}
