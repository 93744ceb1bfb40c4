package movielist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/logger"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/storage"
	"movieweb/proj/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	service *MovieListService
}

func newFixture(t *testing.T) *fixture {
	store := memory.New()
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		service: New(logger.Discard(), store, validator.New()),
	}
}

func (f *fixture) user(name string) *models.User {
	user, err := f.store.InsertUser(f.ctx, name)
	require.NoError(f.t, err)
	return user
}

func (f *fixture) movie(id int64) *models.Movie {
	movie, err := f.store.GetMovie(f.ctx, id)
	require.NoError(f.t, err)
	return movie
}

func (f *fixture) catalogSize() int {
	filter := filters.Filters{PageSize: filters.MaxPageSize}
	filter.Normalize()
	_, total, err := f.store.ListMovies(f.ctx, "", filter)
	require.NoError(f.t, err)
	return total
}

func shawshank(rating *float64) AddMovieParams {
	return AddMovieParams{
		ExternalID: ptr("tt0111161"),
		Metadata:   models.MovieMetadata{Title: "The Shawshank Redemption", Year: ptr(int32(1994))},
		Rating:     rating,
	}
}

func assertCommunityRating(t *testing.T, movie *models.Movie, expected *float64, count int) {
	t.Helper()
	assert.Equal(t, count, movie.CommunityRatingCount)
	if expected == nil {
		assert.Nil(t, movie.CommunityRating)
		return
	}
	require.NotNil(t, movie.CommunityRating)
	assert.InDelta(t, *expected, *movie.CommunityRating, 1e-9)
}

func TestSharedMovieScenario(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")

	entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(5.0)))
	require.NoError(t, err)
	assert.Equal(t, 1, f.catalogSize())
	assertCommunityRating(t, &entry.Movie, ptr(5.0), 1)
	movieID := entry.Movie.ID

	entry, err = f.service.AddMovieToUserList(f.ctx, bob.ID, shawshank(ptr(3.0)))
	require.NoError(t, err)
	assert.Equal(t, movieID, entry.Movie.ID)
	assert.Equal(t, 1, f.catalogSize())
	assertCommunityRating(t, f.movie(movieID), ptr(4.0), 2)

	pruned, err := f.service.RemoveFromUserList(f.ctx, alice.ID, movieID)
	require.NoError(t, err)
	assert.False(t, pruned)
	assertCommunityRating(t, f.movie(movieID), ptr(3.0), 1)

	pruned, err = f.service.RemoveFromUserList(f.ctx, bob.ID, movieID)
	require.NoError(t, err)
	assert.True(t, pruned)
	assert.Zero(t, f.catalogSize())
}

func TestAddMovie(t *testing.T) {
	t.Run("existing movie keeps first metadata", func(t *testing.T) {
		f := newFixture(t)
		alice, bob := f.user("alice"), f.user("bob")
		_, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(nil))
		require.NoError(t, err)
		params := shawshank(nil)
		params.Metadata.Title = "Renamed"
		entry, err := f.service.AddMovieToUserList(f.ctx, bob.ID, params)
		require.NoError(t, err)
		assert.Equal(t, "The Shawshank Redemption", entry.Movie.Title)
		assertCommunityRating(t, &entry.Movie, nil, 0)
	})
	t.Run("already in list", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user("alice")
		_, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(4.0)))
		require.NoError(t, err)
		_, err = f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(1.0)))
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, 1, f.catalogSize())
		list, err := f.service.GetUserList(f.ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 4.0, *list[0].UserRating)
		assertCommunityRating(t, &list[0].Movie, ptr(4.0), 1)
	})
	t.Run("movies without external id are always new", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user("alice")
		params := AddMovieParams{Metadata: models.MovieMetadata{Title: "  Home Video  "}}
		first, err := f.service.AddMovieToUserList(f.ctx, alice.ID, params)
		require.NoError(t, err)
		assert.Equal(t, "Home Video", first.Movie.Title)
		second, err := f.service.AddMovieToUserList(f.ctx, alice.ID, params)
		require.NoError(t, err)
		assert.NotEqual(t, first.Movie.ID, second.Movie.ID)
	})
	t.Run("blank external id is treated as absent", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user("alice")
		entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, AddMovieParams{
			ExternalID: ptr("  "),
			Metadata:   models.MovieMetadata{Title: "Heat"},
		})
		require.NoError(t, err)
		assert.Nil(t, entry.Movie.ExternalID)
		assert.Nil(t, entry.Movie.Year)
	})
	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddMovieToUserList(f.ctx, 99, shawshank(nil))
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, f.catalogSize())
	})
	t.Run("existing catalog movie by id", func(t *testing.T) {
		f := newFixture(t)
		alice, bob := f.user("alice"), f.user("bob")
		entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(2.0)))
		require.NoError(t, err)
		entry, err = f.service.AddExistingMovieToUserList(f.ctx, bob.ID, entry.Movie.ID, ptr(4.0))
		require.NoError(t, err)
		assertCommunityRating(t, &entry.Movie, ptr(3.0), 2)
		_, err = f.service.AddExistingMovieToUserList(f.ctx, bob.ID, entry.Movie.ID, nil)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		_, err = f.service.AddExistingMovieToUserList(f.ctx, bob.ID, 404, nil)
		assert.ErrorIs(t, err, ErrMovieNotFound)
	})
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name   string
		params AddMovieParams
		field  string
	}{
		{"rating above range", shawshank(ptr(5.3)), "rating"},
		{"rating below range", shawshank(ptr(-1.0)), "rating"},
		{"rating off step", shawshank(ptr(2.25)), "rating"},
		{"blank title", AddMovieParams{Metadata: models.MovieMetadata{Title: "   "}}, "title"},
		{"implausible year", AddMovieParams{Metadata: models.MovieMetadata{Title: "Old", Year: ptr(int32(1700))}}, "year"},
		{"zero year", AddMovieParams{Metadata: models.MovieMetadata{Title: "Heat", Year: ptr(int32(0))}}, "year"},
		{"long external id", AddMovieParams{ExternalID: ptr(fmt.Sprintf("%051d", 0)), Metadata: models.MovieMetadata{Title: "x"}}, "external_id"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			alice := f.user("alice")
			_, err := f.service.AddMovieToUserList(f.ctx, alice.ID, tc.params)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Errors, tc.field)
			assert.Zero(t, f.catalogSize())
			list, err := f.store.UserList(f.ctx, alice.ID)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}

	t.Run("update rejects invalid rating without changes", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user("alice")
		entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(4.5)))
		require.NoError(t, err)
		_, err = f.service.UpdateUserRating(f.ctx, alice.ID, entry.Movie.ID, ptr(5.5))
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		membership, err := f.service.GetMembership(f.ctx, alice.ID, entry.Movie.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.5, *membership.UserRating)
		assertCommunityRating(t, f.movie(entry.Movie.ID), ptr(4.5), 1)
	})
}

func TestUpdateUserRating(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(4.5)))
	require.NoError(t, err)
	movieID := entry.Movie.ID

	entry, err = f.service.UpdateUserRating(f.ctx, alice.ID, movieID, ptr(2.0))
	require.NoError(t, err)
	assert.Equal(t, 2.0, *entry.UserRating)
	assertCommunityRating(t, f.movie(movieID), ptr(2.0), 1)

	_, err = f.service.UpdateUserRating(f.ctx, alice.ID, movieID, nil)
	require.NoError(t, err)
	assertCommunityRating(t, f.movie(movieID), nil, 0)

	_, err = f.service.UpdateUserRating(f.ctx, alice.ID, 404, ptr(1.0))
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestRemoveFromUserList(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	_, err := f.service.RemoveFromUserList(f.ctx, alice.ID, 1)
	assert.ErrorIs(t, err, ErrMembershipNotFound)

	entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(5.0)))
	require.NoError(t, err)
	_, err = f.store.InsertComment(f.ctx, entry.Movie.ID, alice.ID, "great")
	require.NoError(t, err)
	pruned, err := f.service.RemoveFromUserList(f.ctx, alice.ID, entry.Movie.ID)
	require.NoError(t, err)
	assert.True(t, pruned)
	_, err = f.service.GetMovie(f.ctx, entry.Movie.ID)
	assert.ErrorIs(t, err, ErrMovieNotFound)
	comments, err := f.store.ListComments(f.ctx, entry.Movie.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestDeleteMovieGlobally(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	entry, err := f.service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(5.0)))
	require.NoError(t, err)
	_, err = f.service.AddMovieToUserList(f.ctx, bob.ID, shawshank(ptr(1.0)))
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteMovieGlobally(f.ctx, entry.Movie.ID))
	for _, u := range []*models.User{alice, bob} {
		list, err := f.service.GetUserList(f.ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	}
	assert.ErrorIs(t, f.service.DeleteMovieGlobally(f.ctx, entry.Movie.ID), ErrMovieNotFound)
}

// Random add/update/remove sequences keep the aggregate equal to the mean of
// the ratings currently held by memberships.
func TestCommunityRatingMatchesMemberships(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	users := make([]*models.User, 6)
	for i := range users {
		users[i] = f.user(fmt.Sprintf("user%d", i))
	}
	current := make(map[int64]*float64)
	var movieID int64
	randomRating := func() *float64 {
		if rng.Intn(4) == 0 {
			return nil
		}
		return ptr(float64(rng.Intn(11)) / 2)
	}

	for step := 0; step < 300; step++ {
		u := users[rng.Intn(len(users))]
		_, linked := current[u.ID]
		switch {
		case !linked:
			r := randomRating()
			entry, err := f.service.AddMovieToUserList(f.ctx, u.ID, shawshank(r))
			require.NoError(t, err)
			movieID = entry.Movie.ID
			current[u.ID] = r
		case rng.Intn(2) == 0:
			r := randomRating()
			_, err := f.service.UpdateUserRating(f.ctx, u.ID, movieID, r)
			require.NoError(t, err)
			current[u.ID] = r
		default:
			_, err := f.service.RemoveFromUserList(f.ctx, u.ID, movieID)
			require.NoError(t, err)
			delete(current, u.ID)
		}

		if len(current) == 0 {
			assert.Zero(t, f.catalogSize(), "step %d", step)
			continue
		}
		var sum float64
		count := 0
		for _, r := range current {
			if r != nil {
				sum += *r
				count++
			}
		}
		movie := f.movie(movieID)
		if count == 0 {
			assertCommunityRating(t, movie, nil, 0)
		} else {
			assertCommunityRating(t, movie, ptr(sum/float64(count)), count)
		}
	}
}

type failingTxStore struct {
	storage.Storage
	err error
}

func (s failingTxStore) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.err
}

func TestStorageErrorsSurface(t *testing.T) {
	boom := errors.New("connection refused")
	service := New(logger.Discard(), failingTxStore{Storage: memory.New(), err: boom}, validator.New())
	_, err := service.AddMovieToUserList(context.Background(), 1, shawshank(nil))
	assert.ErrorIs(t, err, boom)
	_, err = service.RemoveFromUserList(context.Background(), 1, 1)
	assert.ErrorIs(t, err, boom)
}

// failingRatingStore runs real transactions whose rating writes fail.
type failingRatingStore struct {
	*memory.Store
	err error
}

type failingRatingQueries struct {
	storage.Queries
	err error
}

func (q failingRatingQueries) SetCommunityRating(ctx context.Context, id int64, rating *float64, count int) error {
	return q.err
}

func (s failingRatingStore) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.Store.WithTx(ctx, func(q storage.Queries) error {
		return fn(failingRatingQueries{Queries: q, err: s.err})
	})
}

func TestFailedRatingRollsBackCatalogInsert(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	diskFull := errors.New("disk full")
	service := New(logger.Discard(), failingRatingStore{Store: f.store, err: diskFull}, validator.New())

	_, err := service.AddMovieToUserList(f.ctx, alice.ID, shawshank(ptr(4.0)))
	require.ErrorIs(t, err, diskFull)

	_, err = f.store.GetMovieByExternalID(f.ctx, "tt0111161")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, f.catalogSize())
	list, err := f.store.UserList(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReads(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user("alice"), f.user("bob")
	heat, err := f.service.AddMovieToUserList(f.ctx, alice.ID, AddMovieParams{Metadata: models.MovieMetadata{Title: "Heat"}, Rating: ptr(4.0)})
	require.NoError(t, err)
	_, err = f.service.AddMovieToUserList(f.ctx, alice.ID, AddMovieParams{Metadata: models.MovieMetadata{Title: "Alien"}, Rating: ptr(5.0)})
	require.NoError(t, err)
	_, err = f.service.AddMovieToUserList(f.ctx, bob.ID, AddMovieParams{Metadata: models.MovieMetadata{Title: "Unrated"}})
	require.NoError(t, err)

	top, err := f.service.TopRatedMovies(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Alien", top[0].Title)
	assert.Equal(t, heat.Movie.ID, top[1].ID)

	movies, meta, err := f.service.ListMovies(f.ctx, "", filters.Filters{Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalRecords)
	assert.Equal(t, []string{"Alien", "Heat", "Unrated"}, []string{movies[0].Title, movies[1].Title, movies[2].Title})

	_, _, err = f.service.ListMovies(f.ctx, "", filters.Filters{Sort: "plot"})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	users, err := f.service.ListUsers(f.ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 2, users[0].MovieCount)

	_, err = f.service.GetUser(f.ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.service.GetUserList(f.ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
