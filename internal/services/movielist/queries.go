package movielist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage"
)

func (s *MovieListService) GetUserList(ctx context.Context, userID int64) ([]models.ListEntry, error) {
	const op = "movielist.MovieListService.GetUserList"
	log := s.log.With("op", op, "user_id", userID)
	if err := s.ensureUser(ctx, s.storage, userID); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error(err.Error())
		}
		return nil, err
	}
	entries, err := s.storage.UserList(ctx, userID)
	if err != nil {
		log.Error(err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

func (s *MovieListService) GetMovie(ctx context.Context, movieID int64) (*models.Movie, error) {
	const op = "movielist.MovieListService.GetMovie"
	log := s.log.With("op", op, "movie_id", movieID)
	movie, err := s.storage.GetMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("movie not found")
			return nil, ErrMovieNotFound
		}
		log.Error(err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return movie, nil
}

func (s *MovieListService) GetMovieByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	const op = "movielist.MovieListService.GetMovieByExternalID"
	log := s.log.With("op", op, "external_id", externalID)
	movie, err := s.storage.GetMovieByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Debug("movie not cataloged")
			return nil, ErrMovieNotFound
		}
		log.Error(err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return movie, nil
}

func (s *MovieListService) GetMembership(ctx context.Context, userID, movieID int64) (*models.Membership, error) {
	const op = "movielist.MovieListService.GetMembership"
	membership, err := s.storage.GetMembership(ctx, userID, movieID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return membership, nil
}

// TopRatedMovies returns rated movies, best first. limit defaults to
// DefaultTopRatedLimit and is capped at MaxTopRatedLimit.
func (s *MovieListService) TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error) {
	const op = "movielist.MovieListService.TopRatedMovies"
	if limit <= 0 {
		limit = DefaultTopRatedLimit
	}
	limit = min(limit, MaxTopRatedLimit)
	movies, err := s.storage.TopRatedMovies(ctx, limit)
	if err != nil {
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return movies, nil
}

func (s *MovieListService) ListMovies(ctx context.Context, title string, f filters.Filters) ([]models.Movie, filters.Metadata, error) {
	const op = "movielist.MovieListService.ListMovies"
	f.Normalize()
	if err := s.validate(f); err != nil {
		return nil, filters.Metadata{}, err
	}
	movies, total, err := s.storage.ListMovies(ctx, strings.TrimSpace(title), f)
	if err != nil {
		s.log.Error(err.Error(), "op", op)
		return nil, filters.Metadata{}, fmt.Errorf("%s: %w", op, err)
	}
	return movies, filters.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (s *MovieListService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	const op = "movielist.MovieListService.ListUsers"
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *MovieListService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "movielist.MovieListService.GetUser"
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
