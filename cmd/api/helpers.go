package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"movieweb/proj/internal/clients"
	"movieweb/proj/internal/clients/omdb"
	"movieweb/proj/internal/clients/openrouter"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/decoder"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/services/accounts"
	"movieweb/proj/internal/services/ai"
	"movieweb/proj/internal/services/comments"
	"movieweb/proj/internal/services/movielist"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

func (app *Application) extractIDParam(w http.ResponseWriter, r *http.Request, name string) (id int64, extracted bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		app.Http.BadRequest(w, r, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	if id < 1 {
		app.Http.BadRequest(w, r, fmt.Sprintf("%s must be greater than zero", name))
		return 0, false
	}
	return id, true
}

// decodeQuery fills dst from the query string, answering 422 on failure.
func (app *Application) decodeQuery(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := app.decoder.Decode(dst, r.URL.Query()); err != nil {
		var decodeErr *decoder.DecodeError
		if errors.As(err, &decodeErr) {
			app.Http.UnprocessableEntity(w, r, decodeErr.Errors)
			return false
		}
		app.Http.BadRequest(w, r, err.Error())
		return false
	}
	return true
}

func (app *Application) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	src := http.MaxBytesReader(w, r.Body, int64(maxBytes))
	defer io.Copy(io.Discard, src)
	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err != nil {
		return handleJsonErr(err)
	}
	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func handleJsonErr(err error) error {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var invalidUnmarshalError *json.InvalidUnmarshalError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")

	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")

	case errors.As(err, &maxBytesError):
		return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))

	case errors.As(err, &invalidUnmarshalError):
		panic(err)
	default:
		return err
	}
}

func contextGetUser(r *http.Request) *models.User {
	user, ok := r.Context().Value(CtxKeyUser).(*models.User)
	if !ok || user == nil {
		return models.AnonymousUser
	}
	return user
}

// handleServiceError answers with the status matching a service or provider
// error. Unknown errors are logged and reported as 500.
func (app *Application) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validator.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.Http.UnprocessableEntity(w, r, validationErr.Errors)

	case errors.Is(err, movielist.ErrNotFound),
		errors.Is(err, accounts.ErrUserNotFound),
		errors.Is(err, comments.ErrMovieNotFound),
		errors.Is(err, comments.ErrUserNotFound),
		errors.Is(err, omdb.ErrNotFound):
		app.Http.NotFound(w, r, err.Error())

	case errors.Is(err, movielist.ErrAlreadyExists),
		errors.Is(err, movielist.ErrConflict),
		errors.Is(err, accounts.ErrAlreadyExists):
		app.Http.Conflict(w, r, err.Error())

	case errors.Is(err, accounts.ErrInvalidToken):
		app.Http.Unauthorized(w, r, err.Error())

	case errors.Is(err, ai.ErrNoClearTitle):
		app.Http.UnprocessableEntity(w, r, map[string]string{"title": err.Error()})

	case errors.Is(err, omdb.ErrNotConfigured),
		errors.Is(err, openrouter.ErrNotConfigured),
		errors.Is(err, openrouter.ErrUnauthorized),
		errors.Is(err, clients.ErrUnavailable):
		app.Http.ServiceUnavailable(w, r, err.Error())

	case errors.Is(err, ai.ErrNoSuggestions),
		errors.Is(err, openrouter.ErrEmptyResponse):
		app.Http.BadGateway(w, r, err, err.Error())

	default:
		app.Http.ServerError(w, r, err, "")
	}
}

// providerError reports a failed metadata or AI call. Errors the providers
// do not classify become 502.
func (app *Application) providerError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validator.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, omdb.ErrNotFound),
		errors.Is(err, omdb.ErrNotConfigured),
		errors.Is(err, openrouter.ErrNotConfigured),
		errors.Is(err, openrouter.ErrUnauthorized),
		errors.Is(err, openrouter.ErrEmptyResponse),
		errors.Is(err, clients.ErrUnavailable),
		errors.Is(err, ai.ErrNoClearTitle),
		errors.Is(err, ai.ErrNoSuggestions):
		app.handleServiceError(w, r, err)
	default:
		app.Http.BadGateway(w, r, err, "external provider request failed, please try again later")
	}
}
