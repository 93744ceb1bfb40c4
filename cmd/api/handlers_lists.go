package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/metrics"
	"movieweb/proj/internal/services/movielist"
)

func (app *Application) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := app.Services.MovieList.ListUsers(r.Context())
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"users": users}, "")
}

func (app *Application) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	user, err := app.Services.MovieList.GetUser(r.Context(), userID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	entries, err := app.Services.MovieList.GetUserList(r.Context(), userID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"user": user, "movies": entries}, "")
}

func (app *Application) getUserList(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	entries, err := app.Services.MovieList.GetUserList(r.Context(), userID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movies": entries}, "")
}

func (app *Application) getListEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	membership, err := app.Services.MovieList.GetMembership(r.Context(), userID, movieID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	movie, err := app.Services.MovieList.GetMovie(r.Context(), movieID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	entry := models.ListEntry{Movie: *movie, UserRating: membership.UserRating, AddedAt: membership.CreatedAt}
	app.Http.Ok(w, r, envelop{"entry": entry}, "")
}

// addMovieRequest describes a movie to add in one of three ways: explicit
// metadata, a provider external id, or a title searched at the provider
// (optionally interpreted by the AI first).
type addMovieRequest struct {
	ExternalID *string               `json:"external_id"`
	Title      string                `json:"title"`
	Year       *int32                `json:"year"`
	Interpret  bool                  `json:"interpret"`
	Metadata   *models.MovieMetadata `json:"metadata"`
	Rating     *float64              `json:"rating"`
}

// resolveMovie runs every external lookup before the list workflow opens its
// transaction. An external id already in the catalog needs no lookup.
func (app *Application) resolveMovie(ctx context.Context, req addMovieRequest) (movielist.AddMovieParams, error) {
	params := movielist.AddMovieParams{ExternalID: req.ExternalID, Rating: req.Rating}
	if req.Metadata != nil {
		params.Metadata = *req.Metadata
		return params, nil
	}
	if req.ExternalID != nil && strings.TrimSpace(*req.ExternalID) != "" {
		externalID := strings.TrimSpace(*req.ExternalID)
		existing, err := app.Services.MovieList.GetMovieByExternalID(ctx, externalID)
		switch {
		case err == nil:
			params.ExternalID = &externalID
			params.Metadata = existing.Metadata()
			return params, nil
		case !errors.Is(err, movielist.ErrMovieNotFound):
			return params, err
		}
		provided, err := app.metadata.GetByID(ctx, externalID)
		if err != nil {
			return params, err
		}
		return fromProvider(provided, req.Rating), nil
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return params, &validator.ValidationError{Errors: map[string]string{"title": "This field is required"}}
	}
	if req.Interpret {
		resolved, err := app.Services.AI.ResolveTitle(ctx, title)
		if err != nil {
			return params, err
		}
		title = resolved
	}
	provided, err := app.metadata.SearchByTitle(ctx, title, req.Year)
	if err != nil {
		return params, err
	}
	return fromProvider(provided, req.Rating), nil
}

func fromProvider(provided *models.ProviderMovie, rating *float64) movielist.AddMovieParams {
	externalID := provided.ExternalID
	return movielist.AddMovieParams{
		ExternalID: &externalID,
		Metadata:   provided.Metadata,
		Rating:     rating,
	}
}

func (app *Application) addMovieToList(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	var req addMovieRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	params, err := app.resolveMovie(r.Context(), req)
	if err != nil {
		app.providerError(w, r, err)
		return
	}
	entry, err := app.Services.MovieList.AddMovieToUserList(r.Context(), userID, params)
	metrics.RecordListOperation("add", err)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Created(w, r, envelop{"entry": entry}, "Movie added to your list")
}

type ratingRequest struct {
	Rating *float64 `json:"rating"`
}

func (app *Application) addExistingMovieToList(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	var req ratingRequest
	if r.ContentLength != 0 {
		if err := app.readJSON(w, r, &req); err != nil {
			app.Http.BadRequest(w, r, err.Error())
			return
		}
	}
	entry, err := app.Services.MovieList.AddExistingMovieToUserList(r.Context(), userID, movieID, req.Rating)
	metrics.RecordListOperation("add_existing", err)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Created(w, r, envelop{"entry": entry}, "Movie added to your list")
}

func (app *Application) updateRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	var req ratingRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	entry, err := app.Services.MovieList.UpdateUserRating(r.Context(), userID, movieID, req.Rating)
	metrics.RecordListOperation("update_rating", err)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"entry": entry}, "Rating updated")
}

func (app *Application) removeFromList(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.extractIDParam(w, r, "userID")
	if !ok {
		return
	}
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	pruned, err := app.Services.MovieList.RemoveFromUserList(r.Context(), userID, movieID)
	metrics.RecordListOperation("remove", err)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"pruned": pruned}, "Movie removed from your list")
}
