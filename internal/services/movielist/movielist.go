package movielist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/services/ratings"
	"movieweb/proj/internal/storage"

	govalidator "github.com/go-playground/validator/v10"
)

const (
	DefaultTopRatedLimit = 10
	MaxTopRatedLimit     = 100
)

type MovieListService struct {
	log        *slog.Logger
	storage    storage.Storage
	aggregator *ratings.Aggregator
	validator  *govalidator.Validate
}

func New(log *slog.Logger, storage storage.Storage, validator *govalidator.Validate) *MovieListService {
	return &MovieListService{
		log:        log,
		storage:    storage,
		aggregator: ratings.New(log),
		validator:  validator,
	}
}

type AddMovieParams struct {
	ExternalID *string              `json:"external_id" validate:"omitempty,max=50"`
	Metadata   models.MovieMetadata `json:"metadata" validate:"-"`
	Rating     *float64             `json:"rating" validate:"omitempty,rating"`
}

type ratingInput struct {
	Rating *float64 `json:"rating" validate:"omitempty,rating"`
}

func (p *AddMovieParams) normalize() {
	if p.ExternalID != nil {
		id := strings.TrimSpace(*p.ExternalID)
		p.ExternalID = &id
		if id == "" {
			p.ExternalID = nil
		}
	}
	p.Metadata.Title = strings.TrimSpace(p.Metadata.Title)
}

func (s *MovieListService) validate(obj any) error {
	return validator.Check(s.validator, obj)
}

// AddMovieToUserList makes sure the movie is in the catalog (reusing the row
// with the same external id, otherwise creating it from params.Metadata) and
// links it to the user's list. All writes share one transaction.
func (s *MovieListService) AddMovieToUserList(ctx context.Context, userID int64, params AddMovieParams) (*models.ListEntry, error) {
	const op = "movielist.MovieListService.AddMovieToUserList"
	params.normalize()
	log := s.log.With("op", op, "user_id", userID, "external_id", params.ExternalID)
	if err := s.validate(params); err != nil {
		log.Info("invalid params", "errMsg", err.Error())
		return nil, err
	}
	var entry *models.ListEntry
	err := s.storage.WithTx(ctx, func(q storage.Queries) error {
		if err := s.ensureUser(ctx, q, userID); err != nil {
			return err
		}
		var movie *models.Movie
		if params.ExternalID != nil {
			existing, err := q.GetMovieByExternalID(ctx, *params.ExternalID)
			switch {
			case err == nil:
				log.Debug("reusing catalog movie", "movie_id", existing.ID)
				movie = existing
			case !errors.Is(err, storage.ErrNotFound):
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		if movie == nil {
			if err := s.validate(params.Metadata); err != nil {
				log.Info("invalid metadata", "errMsg", err.Error())
				return err
			}
			created, err := q.InsertMovie(ctx, params.ExternalID, params.Metadata)
			if err != nil {
				if errors.Is(err, storage.ErrConflict) {
					log.Warn("catalog insert raced with another writer")
					return ErrConflict
				}
				return fmt.Errorf("%s: %w", op, err)
			}
			log.Info("movie added to catalog", "movie_id", created.ID)
			movie = created
		}
		var err error
		entry, err = s.link(ctx, q, userID, movie.ID, params.Rating)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AddExistingMovieToUserList links a movie already in the catalog to the user's list.
func (s *MovieListService) AddExistingMovieToUserList(ctx context.Context, userID, movieID int64, rating *float64) (*models.ListEntry, error) {
	const op = "movielist.MovieListService.AddExistingMovieToUserList"
	log := s.log.With("op", op, "user_id", userID, "movie_id", movieID)
	if err := s.validate(ratingInput{Rating: rating}); err != nil {
		log.Info("invalid rating", "errMsg", err.Error())
		return nil, err
	}
	var entry *models.ListEntry
	err := s.storage.WithTx(ctx, func(q storage.Queries) error {
		if err := s.ensureUser(ctx, q, userID); err != nil {
			return err
		}
		if _, err := q.GetMovie(ctx, movieID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrMovieNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		var err error
		entry, err = s.link(ctx, q, userID, movieID, rating)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *MovieListService) ensureUser(ctx context.Context, q storage.Queries, userID int64) error {
	if _, err := q.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *MovieListService) link(ctx context.Context, q storage.Queries, userID, movieID int64, rating *float64) (*models.ListEntry, error) {
	const op = "movielist.MovieListService.link"
	log := s.log.With("op", op, "user_id", userID, "movie_id", movieID)
	_, err := q.GetMembership(ctx, userID, movieID)
	switch {
	case err == nil:
		log.Info("movie already in list")
		return nil, ErrAlreadyExists
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	membership, err := q.InsertMembership(ctx, userID, movieID, rating)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			log.Info("membership created concurrently")
			return nil, ErrAlreadyExists
		case errors.Is(err, storage.ErrNotFound):
			// the user was checked in this transaction, so the movie was pruned concurrently
			log.Info("movie removed from catalog concurrently")
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rating != nil {
		if err := s.recompute(ctx, q, movieID); err != nil {
			return nil, err
		}
	}
	return s.entry(ctx, q, membership)
}

func (s *MovieListService) recompute(ctx context.Context, q storage.Queries, movieID int64) error {
	if err := s.aggregator.Recompute(ctx, q, movieID); err != nil {
		if errors.Is(err, ratings.ErrMovieNotFound) {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}
		return err
	}
	return nil
}

func (s *MovieListService) entry(ctx context.Context, q storage.Queries, membership *models.Membership) (*models.ListEntry, error) {
	movie, err := q.GetMovie(ctx, membership.MovieID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading linked movie: %w", ErrInternal, err)
	}
	return &models.ListEntry{Movie: *movie, UserRating: membership.UserRating, AddedAt: membership.CreatedAt}, nil
}

// UpdateUserRating overwrites the user's rating for a movie in their list. A
// nil rating clears it.
func (s *MovieListService) UpdateUserRating(ctx context.Context, userID, movieID int64, rating *float64) (*models.ListEntry, error) {
	const op = "movielist.MovieListService.UpdateUserRating"
	log := s.log.With("op", op, "user_id", userID, "movie_id", movieID)
	if err := s.validate(ratingInput{Rating: rating}); err != nil {
		log.Info("invalid rating", "errMsg", err.Error())
		return nil, err
	}
	var entry *models.ListEntry
	err := s.storage.WithTx(ctx, func(q storage.Queries) error {
		membership, err := q.UpdateMembershipRating(ctx, userID, movieID, rating)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Info("membership not found")
				return ErrMembershipNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.recompute(ctx, q, movieID); err != nil {
			return err
		}
		entry, err = s.entry(ctx, q, membership)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveFromUserList deletes the user's membership. When it was the last
// membership of the movie the catalog row is deleted as well and pruned is
// true; otherwise the community rating is recomputed without the user.
func (s *MovieListService) RemoveFromUserList(ctx context.Context, userID, movieID int64) (pruned bool, err error) {
	const op = "movielist.MovieListService.RemoveFromUserList"
	log := s.log.With("op", op, "user_id", userID, "movie_id", movieID)
	err = s.storage.WithTx(ctx, func(q storage.Queries) error {
		pruned = false
		// held until commit: adders of this movie wait, so the membership count below stays true
		if err := q.LockMovie(ctx, movieID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Info("membership not found")
				return ErrMembershipNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := q.DeleteMembership(ctx, userID, movieID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Info("membership not found")
				return ErrMembershipNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		remaining, err := q.CountMemberships(ctx, movieID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if remaining > 0 {
			return s.recompute(ctx, q, movieID)
		}
		if err := q.DeleteMovie(ctx, movieID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: pruning movie %d: %w", ErrInternal, movieID, err)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		pruned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if pruned {
		log.Info("last membership removed, movie pruned from catalog")
	}
	return pruned, nil
}

// DeleteMovieGlobally removes the movie with all of its memberships and comments.
func (s *MovieListService) DeleteMovieGlobally(ctx context.Context, movieID int64) error {
	const op = "movielist.MovieListService.DeleteMovieGlobally"
	log := s.log.With("op", op, "movie_id", movieID)
	if err := s.storage.DeleteMovie(ctx, movieID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("movie not found")
			return ErrMovieNotFound
		}
		log.Error(err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("movie deleted")
	return nil
}
