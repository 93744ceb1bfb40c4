package main

import (
	"net/http"
	"strings"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/metrics"
	"movieweb/proj/internal/services/ai"
	"movieweb/proj/internal/services/movielist"

	"github.com/go-chi/chi/v5"
)

type listMoviesQuery struct {
	Title string `schema:"title"`
	filters.Filters
}

func (app *Application) listMovies(w http.ResponseWriter, r *http.Request) {
	var query listMoviesQuery
	if !app.decodeQuery(w, r, &query) {
		return
	}
	movies, metadata, err := app.Services.MovieList.ListMovies(r.Context(), query.Title, query.Filters)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movies": movies, "metadata": metadata}, "")
}

type topRatedQuery struct {
	Limit int `schema:"limit"`
}

func (app *Application) topRatedMovies(w http.ResponseWriter, r *http.Request) {
	var query topRatedQuery
	if !app.decodeQuery(w, r, &query) {
		return
	}
	if query.Limit < 0 || query.Limit > movielist.MaxTopRatedLimit {
		app.Http.UnprocessableEntity(w, r, map[string]string{"limit": "Value should be between 1 and 100"})
		return
	}
	movies, err := app.Services.MovieList.TopRatedMovies(r.Context(), query.Limit)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movies": movies}, "")
}

func (app *Application) getMovie(w http.ResponseWriter, r *http.Request) {
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	movie, err := app.Services.MovieList.GetMovie(r.Context(), movieID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movie": movie}, "")
}

func (app *Application) deleteMovie(w http.ResponseWriter, r *http.Request) {
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	err := app.Services.MovieList.DeleteMovieGlobally(r.Context(), movieID)
	metrics.RecordListOperation("delete_globally", err)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, nil, "Movie deleted")
}

func (app *Application) listComments(w http.ResponseWriter, r *http.Request) {
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	comments, err := app.Services.Comments.List(r.Context(), movieID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"comments": comments}, "")
}

type commentRequest struct {
	Text string `json:"text"`
}

func (app *Application) addComment(w http.ResponseWriter, r *http.Request) {
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	var req commentRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	comment, err := app.Services.Comments.Add(r.Context(), movieID, contextGetUser(r).ID, req.Text)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Created(w, r, envelop{"comment": comment}, "Comment added")
}

// recommendations suggests movies similar to the given one. The "temp" query
// parameter sets the sampling temperature.
func (app *Application) recommendations(w http.ResponseWriter, r *http.Request) {
	movieID, ok := app.extractIDParam(w, r, "movieID")
	if !ok {
		return
	}
	movie, err := app.Services.MovieList.GetMovie(r.Context(), movieID)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	temperature := ai.ParseTemperature(r.URL.Query().Get("temp"), ai.DefaultRecommendTemperature)
	titles, err := app.Services.AI.Recommend(r.Context(), contextGetUser(r).ID, movie.Title, temperature)
	if err != nil {
		app.providerError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movie": movie, "recommendations": titles}, "")
}

type metadataSearchQuery struct {
	Title     string `schema:"title"`
	Year      int32  `schema:"year"`
	Interpret bool   `schema:"interpret"`
}

func (app *Application) searchMetadata(w http.ResponseWriter, r *http.Request) {
	var query metadataSearchQuery
	if !app.decodeQuery(w, r, &query) {
		return
	}
	title := strings.TrimSpace(query.Title)
	if title == "" {
		app.Http.UnprocessableEntity(w, r, map[string]string{"title": "This field is required"})
		return
	}
	if query.Interpret {
		resolved, err := app.Services.AI.ResolveTitle(r.Context(), title)
		if err != nil {
			app.providerError(w, r, err)
			return
		}
		title = resolved
	}
	var year *int32
	if query.Year != 0 {
		year = &query.Year
	}
	found, err := app.metadata.SearchByTitle(r.Context(), title, year)
	if err != nil {
		app.providerError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movie": found}, "")
}

func (app *Application) getMetadata(w http.ResponseWriter, r *http.Request) {
	externalID := strings.TrimSpace(chi.URLParam(r, "externalID"))
	if externalID == "" {
		app.Http.BadRequest(w, r, "invalid externalID")
		return
	}
	found, err := app.metadata.GetByID(r.Context(), externalID)
	if err != nil {
		app.providerError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movie": found}, "")
}
