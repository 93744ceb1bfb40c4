package main

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"movieweb/proj/internal/clients"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listPath(userID int64) string {
	return fmt.Sprintf("/api/v1/users/%d/movies", userID)
}

func entryMovie(t *testing.T, res testResponse) map[string]any {
	t.Helper()
	return dataMap(t, res, "entry")["movie"].(map[string]any)
}

func TestHealthcheck(t *testing.T) {
	app := NewTestApplication(nil, t)
	res := app.do(http.MethodGet, "/api/v1/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Raw, `"status":"available"`)

	res = app.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestAccounts(t *testing.T) {
	app := NewTestApplication(nil, t)
	id, token := app.register("Alice")

	res := app.do(http.MethodPost, "/api/v1/accounts/register", "", map[string]string{"name": " alice "})
	assert.Equal(t, http.StatusConflict, res.Status)

	res = app.do(http.MethodPost, "/api/v1/accounts/register", "", map[string]string{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodPost, "/api/v1/accounts/register", "", map[string]any{"name": "bob", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = app.do(http.MethodPost, "/api/v1/accounts/login", "", map[string]string{"name": "ALICE"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, float64(id), dataMap(t, res, "user")["id"])

	res = app.do(http.MethodPost, "/api/v1/accounts/login", "", map[string]string{"name": "nobody"})
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = app.do(http.MethodGet, "/api/v1/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "alice", dataMap(t, res, "user")["name"])
	assert.Equal(t, false, res.Body.Data["is_admin"])

	res = app.do(http.MethodGet, "/api/v1/accounts/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestAddCatalogedMovieSkipsProvider(t *testing.T) {
	app := NewTestApplication(nil, t)
	aliceID, aliceToken := app.register("alice")
	bobID, bobToken := app.register("bob")
	res := app.do(http.MethodPost, listPath(aliceID), aliceToken, map[string]any{"external_id": "tt0111161", "rating": 5.0})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	require.Equal(t, 1, app.metadata.lookups)

	app.metadata.err = clients.ErrUnavailable
	res = app.do(http.MethodPost, listPath(bobID), bobToken, map[string]any{"external_id": " tt0111161 ", "rating": 3.0})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	assert.Equal(t, 1, app.metadata.lookups)
	movie := entryMovie(t, res)
	assert.Equal(t, "The Shawshank Redemption", movie["title"])
	assert.Equal(t, 2.0, movie["community_rating_count"])

	res = app.do(http.MethodPost, listPath(bobID), bobToken, map[string]any{"external_id": "tt0068646"})
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.Equal(t, 2, app.metadata.lookups)
}

func TestCommunityRatingScenario(t *testing.T) {
	app := NewTestApplication(nil, t)
	aliceID, aliceToken := app.register("alice")
	bobID, bobToken := app.register("bob")

	res := app.do(http.MethodPost, listPath(aliceID), aliceToken, map[string]any{"external_id": "tt0111161", "rating": 5.0})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	movie := entryMovie(t, res)
	movieID := int64(movie["id"].(float64))
	assert.Equal(t, 5.0, movie["community_rating"])
	assert.Equal(t, 1.0, movie["community_rating_count"])
	assert.Equal(t, "The Shawshank Redemption", movie["title"])

	res = app.do(http.MethodPost, listPath(bobID), bobToken, map[string]any{"external_id": "tt0111161", "rating": 3.0})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	movie = entryMovie(t, res)
	assert.Equal(t, float64(movieID), movie["id"])
	assert.Equal(t, 4.0, movie["community_rating"])
	assert.Equal(t, 2.0, movie["community_rating_count"])

	res = app.do(http.MethodGet, "/api/v1/movies/", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, dataList(t, res, "movies"), 1)

	res = app.do(http.MethodDelete, fmt.Sprintf("%s/%d", listPath(aliceID), movieID), aliceToken, nil)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	assert.Equal(t, false, res.Body.Data["pruned"])

	res = app.do(http.MethodGet, fmt.Sprintf("/api/v1/movies/%d", movieID), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	movie = dataMap(t, res, "movie")
	assert.Equal(t, 3.0, movie["community_rating"])
	assert.Equal(t, 1.0, movie["community_rating_count"])

	res = app.do(http.MethodDelete, fmt.Sprintf("%s/%d", listPath(bobID), movieID), bobToken, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Body.Data["pruned"])

	res = app.do(http.MethodGet, fmt.Sprintf("/api/v1/movies/%d", movieID), "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestAddMovieVariants(t *testing.T) {
	app := NewTestApplication(nil, t)
	userID, token := app.register("alice")

	t.Run("manual metadata", func(t *testing.T) {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{
			"metadata": map[string]any{"title": "  Home Movie  ", "year": 2001},
		})
		require.Equal(t, http.StatusCreated, res.Status, res.Raw)
		movie := entryMovie(t, res)
		assert.Equal(t, "Home Movie", movie["title"])
		assert.Nil(t, movie["community_rating"])
		assert.Nil(t, movie["external_id"])
	})

	t.Run("title search with interpretation", func(t *testing.T) {
		app.completer.reply = "The Shawshank Redemption"
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{
			"title": "prison escape with a rock hammer", "interpret": true, "rating": 4.5,
		})
		require.Equal(t, http.StatusCreated, res.Status, res.Raw)
		assert.Equal(t, "tt0111161", entryMovie(t, res)["external_id"])
		assert.Equal(t, 4.5, dataMap(t, res, "entry")["user_rating"])
	})

	t.Run("duplicate", func(t *testing.T) {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"external_id": "tt0111161"})
		assert.Equal(t, http.StatusConflict, res.Status)
	})

	t.Run("unknown to provider", func(t *testing.T) {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"title": "Unknown Movie"})
		assert.Equal(t, http.StatusNotFound, res.Status)
	})

	t.Run("missing title", func(t *testing.T) {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"title": "  "})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	})

	t.Run("invalid rating writes nothing", func(t *testing.T) {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{
			"metadata": map[string]any{"title": "Bad Rating"}, "rating": 5.3,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
		assert.Contains(t, res.Raw, "rating")
	})

	res := app.do(http.MethodGet, listPath(userID), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, dataList(t, res, "movies"), 2)
}

func TestListOwnership(t *testing.T) {
	app := NewTestApplication(nil, t)
	aliceID, aliceToken := app.register("alice")
	_, bobToken := app.register("bob")
	body := map[string]any{"external_id": "tt0111161"}

	res := app.do(http.MethodPost, listPath(aliceID), "", body)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	res = app.do(http.MethodPost, listPath(aliceID), bobToken, body)
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = app.do(http.MethodPost, listPath(aliceID), aliceToken, body)
	assert.Equal(t, http.StatusCreated, res.Status)
}

func TestUpdateRatingAndAddExisting(t *testing.T) {
	app := NewTestApplication(nil, t)
	aliceID, aliceToken := app.register("alice")
	bobID, bobToken := app.register("bob")

	res := app.do(http.MethodPost, listPath(aliceID), aliceToken, map[string]any{"external_id": "tt0111161", "rating": 4.5})
	require.Equal(t, http.StatusCreated, res.Status)
	movieID := int64(entryMovie(t, res)["id"].(float64))
	entryPath := fmt.Sprintf("%s/%d", listPath(aliceID), movieID)

	res = app.do(http.MethodPatch, entryPath, aliceToken, map[string]any{"rating": 2.0})
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	assert.Equal(t, 2.0, entryMovie(t, res)["community_rating"])

	res = app.do(http.MethodPatch, entryPath, aliceToken, map[string]any{"rating": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodGet, entryPath, "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 2.0, dataMap(t, res, "entry")["user_rating"])

	res = app.do(http.MethodPatch, fmt.Sprintf("%s/%d", listPath(bobID), movieID), bobToken, map[string]any{"rating": 1.0})
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = app.do(http.MethodPut, fmt.Sprintf("%s/%d", listPath(bobID), movieID), bobToken, map[string]any{"rating": 4.0})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	assert.Equal(t, 3.0, entryMovie(t, res)["community_rating"])

	res = app.do(http.MethodPut, fmt.Sprintf("%s/%d", listPath(bobID), movieID+100), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = app.do(http.MethodPatch, entryPath, aliceToken, map[string]any{"rating": nil})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 4.0, entryMovie(t, res)["community_rating"])
	assert.Equal(t, 1.0, entryMovie(t, res)["community_rating_count"])

	res = app.do(http.MethodGet, "/api/v1/movies/top-rated?limit=5", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, dataList(t, res, "movies"), 1)

	res = app.do(http.MethodGet, "/api/v1/movies/top-rated?limit=500", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
}

func TestCatalogQueries(t *testing.T) {
	app := NewTestApplication(nil, t)
	userID, token := app.register("alice")
	for _, title := range []string{"Heat", "Alien", "Aliens"} {
		res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"metadata": map[string]any{"title": title}})
		require.Equal(t, http.StatusCreated, res.Status)
	}

	res := app.do(http.MethodGet, "/api/v1/movies?title=alien&sort=-title", "", nil)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	movies := dataList(t, res, "movies")
	require.Len(t, movies, 2)
	assert.Equal(t, "Aliens", movies[0].(map[string]any)["title"])
	assert.Equal(t, 2.0, dataMap(t, res, "metadata")["total_records"])

	res = app.do(http.MethodGet, "/api/v1/movies?sort=plot", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodGet, "/api/v1/movies?page=abc", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	users := dataList(t, res, "users")
	require.Len(t, users, 1)
	assert.Equal(t, 3.0, users[0].(map[string]any)["movie_count"])

	res = app.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", userID), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, dataList(t, res, "movies"), 3)

	res = app.do(http.MethodGet, "/api/v1/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestCommentsEndpoints(t *testing.T) {
	app := NewTestApplication(nil, t)
	userID, token := app.register("alice")
	res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"external_id": "tt0111161"})
	require.Equal(t, http.StatusCreated, res.Status)
	commentsPath := fmt.Sprintf("/api/v1/movies/%d/comments", int64(entryMovie(t, res)["id"].(float64)))

	res = app.do(http.MethodPost, commentsPath, "", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = app.do(http.MethodPost, commentsPath, token, map[string]string{"text": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodPost, commentsPath, token, map[string]string{"text": "Hope is a good thing"})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	assert.Equal(t, "alice", dataMap(t, res, "comment")["user"])

	res = app.do(http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, dataList(t, res, "comments"), 1)

	res = app.do(http.MethodGet, "/api/v1/movies/999/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestDeleteMovieGlobally(t *testing.T) {
	app := NewTestApplication(nil, t)
	userID, token := app.register("alice")
	_, adminToken := app.register("admin")
	res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"external_id": "tt0111161", "rating": 5})
	require.Equal(t, http.StatusCreated, res.Status)
	moviePath := fmt.Sprintf("/api/v1/movies/%d", int64(entryMovie(t, res)["id"].(float64)))

	res = app.do(http.MethodDelete, moviePath, token, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)

	// registering the admin name is not enough
	res = app.do(http.MethodDelete, moviePath, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)

	adminKey := http.Header{adminKeyHeader: []string{testAdminKey}}
	res = app.doWithHeader(http.MethodDelete, moviePath, adminToken, adminKey, nil)
	assert.Equal(t, http.StatusOK, res.Status)

	res = app.doWithHeader(http.MethodDelete, moviePath, adminToken, adminKey, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = app.do(http.MethodGet, listPath(userID), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, dataList(t, res, "movies"))
}

func TestAIEndpoints(t *testing.T) {
	app := NewTestApplication(nil, t)
	userID, token := app.register("alice")
	res := app.do(http.MethodPost, listPath(userID), token, map[string]any{"external_id": "tt0111161"})
	require.Equal(t, http.StatusCreated, res.Status)
	recommendationsPath := fmt.Sprintf("/api/v1/movies/%d/recommendations?temp=1.5", int64(entryMovie(t, res)["id"].(float64)))

	app.completer.reply = "1. The Green Mile\n2. Escape from Alcatraz"
	res = app.do(http.MethodGet, recommendationsPath, token, nil)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	assert.Equal(t, []any{"The Green Mile", "Escape from Alcatraz"}, dataList(t, res, "recommendations"))
	assert.Equal(t, []string{"The Green Mile", "Escape from Alcatraz"}, app.Services.AI.History(t.Context(), userID))

	app.completer.reply = "Title: Jaws"
	res = app.do(http.MethodPost, "/api/v1/ai/resolve-title", "", map[string]string{"input": "shark movie"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Jaws", res.Body.Data["title"])

	app.completer.reply = "NO_CLEAR_MOVIE_TITLE_FOUND"
	res = app.do(http.MethodPost, "/api/v1/ai/resolve-title", "", map[string]string{"input": "qwerty"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	app.completer.err = clients.ErrUnavailable
	res = app.do(http.MethodGet, recommendationsPath, token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)

	app.completer.err = errors.New("connection reset")
	res = app.do(http.MethodGet, recommendationsPath, token, nil)
	assert.Equal(t, http.StatusBadGateway, res.Status)
}

func TestMetadataEndpoints(t *testing.T) {
	app := NewTestApplication(nil, t)

	res := app.do(http.MethodGet, "/api/v1/metadata/tt0111161", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 4.5, dataMap(t, res, "movie")["suggested_rating"])

	res = app.do(http.MethodGet, "/api/v1/metadata/search?title=the+shawshank+redemption&year=1994", "", nil)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	assert.Equal(t, "MISS", res.Header.Get("X-Cache"))

	res = app.do(http.MethodGet, "/api/v1/metadata/search?title=the+shawshank+redemption&year=1994", "", nil)
	assert.Equal(t, "HIT", res.Header.Get("X-Cache"))
	assert.Equal(t, 1, app.metadata.searches)

	res = app.do(http.MethodGet, "/api/v1/metadata/search?title=", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = app.do(http.MethodGet, "/api/v1/metadata/tt0000000", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}
