package storage

import (
	"context"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/domain/models"
)

// Queries is the set of row-level operations every backend provides. A Queries
// value is bound either to the whole database or to a single transaction.
// Lookups of absent rows return ErrNotFound, unique violations ErrConflict.
type Queries interface {
	InsertUser(ctx context.Context, name string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserSummary, error)

	InsertMovie(ctx context.Context, externalID *string, meta models.MovieMetadata) (*models.Movie, error)
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
	GetMovieByExternalID(ctx context.Context, externalID string) (*models.Movie, error)
	ListMovies(ctx context.Context, title string, f filters.Filters) ([]models.Movie, int, error)
	TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
	// LockMovie takes a row lock on the movie held until the transaction ends.
	LockMovie(ctx context.Context, id int64) error
	SetCommunityRating(ctx context.Context, id int64, rating *float64, count int) error

	InsertMembership(ctx context.Context, userID, movieID int64, rating *float64) (*models.Membership, error)
	GetMembership(ctx context.Context, userID, movieID int64) (*models.Membership, error)
	UpdateMembershipRating(ctx context.Context, userID, movieID int64, rating *float64) (*models.Membership, error)
	DeleteMembership(ctx context.Context, userID, movieID int64) error
	CountMemberships(ctx context.Context, movieID int64) (int, error)
	// MembershipRatings returns the non-null ratings of the movie's memberships.
	MembershipRatings(ctx context.Context, movieID int64) ([]float64, error)
	UserList(ctx context.Context, userID int64) ([]models.ListEntry, error)

	InsertComment(ctx context.Context, movieID, userID int64, text string) (*models.Comment, error)
	ListComments(ctx context.Context, movieID int64) ([]models.Comment, error)
}

// Storage runs fn inside one transaction: it commits when fn returns nil and
// rolls back every write made through q otherwise.
type Storage interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Close()
}
