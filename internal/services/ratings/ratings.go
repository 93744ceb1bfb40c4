package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movieweb/proj/internal/storage"
)

// ErrMovieNotFound means aggregation was requested for a movie that does not
// exist. Callers treat it as an internal failure and roll back.
var ErrMovieNotFound = errors.New("aggregated movie does not exist")

// Store is the transaction-bound subset of storage.Queries the aggregator needs.
type Store interface {
	LockMovie(ctx context.Context, id int64) error
	MembershipRatings(ctx context.Context, movieID int64) ([]float64, error)
	SetCommunityRating(ctx context.Context, id int64, rating *float64, count int) error
}

type Aggregator struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Aggregator {
	return &Aggregator{log: log}
}

// Recompute sets the movie's community rating to the mean of its non-null
// membership ratings. The movie row is locked first so concurrent
// recomputations of one movie run one after another.
func (a *Aggregator) Recompute(ctx context.Context, store Store, movieID int64) error {
	const op = "ratings.Aggregator.Recompute"
	log := a.log.With("op", op, "movie_id", movieID)
	if err := store.LockMovie(ctx, movieID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Error("aggregation requested for missing movie")
			return fmt.Errorf("%s: movie %d: %w", op, movieID, ErrMovieNotFound)
		}
		log.Error("failed to lock movie", "errMsg", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	ratings, err := store.MembershipRatings(ctx, movieID)
	if err != nil {
		log.Error("failed to collect ratings", "errMsg", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	mean, count := Mean(ratings)
	if err := store.SetCommunityRating(ctx, movieID, mean, count); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: movie %d: %w", op, movieID, ErrMovieNotFound)
		}
		log.Error("failed to store community rating", "errMsg", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("community rating recomputed", "count", count)
	return nil
}

// Mean returns the arithmetic mean and the number of ratings, or nil and zero
// when there are none.
func Mean(ratings []float64) (*float64, int) {
	if len(ratings) == 0 {
		return nil, 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	mean := sum / float64(len(ratings))
	return &mean, len(ratings)
}
