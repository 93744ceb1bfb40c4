package accounts

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyExists = errors.New("user with this name already exists")
	ErrInvalidToken  = errors.New("invalid or expired token")
)
