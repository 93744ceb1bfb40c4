package movielist

import (
	"errors"
	"fmt"

	"movieweb/proj/internal/lib/validator"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMovieNotFound      = fmt.Errorf("movie %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrMembershipNotFound = fmt.Errorf("movie is not in the user's list: %w", ErrNotFound)
	ErrAlreadyExists      = errors.New("movie is already in the user's list")
	ErrConflict           = errors.New("the movie was modified concurrently, please retry")
	ErrInternal           = errors.New("internal error")
)

type ValidationError = validator.ValidationError
