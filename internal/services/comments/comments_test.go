package comments

import (
	"context"
	"strings"
	"testing"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/logger"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*CommentsService, *models.User, *models.Movie) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	user, err := store.InsertUser(ctx, "alice")
	require.NoError(t, err)
	movie, err := store.InsertMovie(ctx, nil, models.MovieMetadata{Title: "Heat"})
	require.NoError(t, err)
	return New(logger.Discard(), store, validator.New()), user, movie
}

func TestAddAndList(t *testing.T) {
	s, user, movie := setup(t)
	ctx := context.Background()

	first, err := s.Add(ctx, movie.ID, user.ID, "  Great heist movie ")
	require.NoError(t, err)
	assert.Equal(t, "Great heist movie", first.Text)
	assert.Equal(t, "alice", first.UserName)
	assert.Zero(t, first.LikesCount)

	second, err := s.Add(ctx, movie.ID, user.ID, "Watched it again")
	require.NoError(t, err)

	comments, err := s.List(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
}

func TestAddValidation(t *testing.T) {
	s, user, movie := setup(t)
	ctx := context.Background()
	testCases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"blank", " \n\t "},
		{"too long", strings.Repeat("a", MaxTextLength+1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Add(ctx, movie.ID, user.ID, tc.text)
			var validationErr *validator.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Errors, "text")
		})
	}
	comments, err := s.List(ctx, movie.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMissingRows(t *testing.T) {
	s, user, movie := setup(t)
	ctx := context.Background()

	_, err := s.Add(ctx, movie.ID+100, user.ID, "hello")
	assert.ErrorIs(t, err, ErrMovieNotFound)
	_, err = s.Add(ctx, movie.ID, user.ID+100, "hello")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.List(ctx, movie.ID+100)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}
