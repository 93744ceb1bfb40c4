package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/storage"

	govalidator "github.com/go-playground/validator/v10"
)

const MaxTextLength = 2000

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrUserNotFound  = errors.New("user not found")
)

type CommentsStorage interface {
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
	InsertComment(ctx context.Context, movieID, userID int64, text string) (*models.Comment, error)
	ListComments(ctx context.Context, movieID int64) ([]models.Comment, error)
}

type CommentsService struct {
	log       *slog.Logger
	storage   CommentsStorage
	validator *govalidator.Validate
}

func New(log *slog.Logger, storage CommentsStorage, validator *govalidator.Validate) *CommentsService {
	return &CommentsService{
		log:       log,
		storage:   storage,
		validator: validator,
	}
}

type commentInput struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

func (s *CommentsService) Add(ctx context.Context, movieID, userID int64, text string) (*models.Comment, error) {
	const op = "comments.CommentsService.Add"
	log := s.log.With("op", op, "movie_id", movieID, "user_id", userID)
	text = strings.TrimSpace(text)
	if err := validator.Check(s.validator, commentInput{Text: text}); err != nil {
		log.Info("invalid comment", "errMsg", err.Error())
		return nil, err
	}
	if err := s.movieExists(ctx, movieID); err != nil {
		return nil, err
	}
	comment, err := s.storage.InsertComment(ctx, movieID, userID, text)
	if err != nil {
		// the movie was checked above, a missing foreign key is the author
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("author not found")
			return nil, ErrUserNotFound
		}
		log.Error(err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("comment added", "comment_id", comment.ID)
	return comment, nil
}

// List returns the movie's comments, newest first.
func (s *CommentsService) List(ctx context.Context, movieID int64) ([]models.Comment, error) {
	const op = "comments.CommentsService.List"
	if err := s.movieExists(ctx, movieID); err != nil {
		return nil, err
	}
	comments, err := s.storage.ListComments(ctx, movieID)
	if err != nil {
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return comments, nil
}

func (s *CommentsService) movieExists(ctx context.Context, movieID int64) error {
	const op = "comments.CommentsService.movieExists"
	if _, err := s.storage.GetMovie(ctx, movieID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMovieNotFound
		}
		s.log.Error(err.Error(), "op", op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
