package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/validator"
	"movieweb/proj/internal/storage"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type UsersStorage interface {
	InsertUser(ctx context.Context, name string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
}

// Claims are carried by session tokens.
type Claims struct {
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type AccountsService struct {
	log       *slog.Logger
	storage   UsersStorage
	validator *govalidator.Validate
	secret    []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func New(log *slog.Logger, storage UsersStorage, validator *govalidator.Validate, secret string, tokenTTL time.Duration) *AccountsService {
	return &AccountsService{
		log:       log,
		storage:   storage,
		validator: validator,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type credentials struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// NormalizeName returns the stored form of a user name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register creates a user and opens a session for them.
func (s *AccountsService) Register(ctx context.Context, name string) (*models.User, *models.AuthToken, error) {
	const op = "accounts.AccountsService.Register"
	name = NormalizeName(name)
	log := s.log.With("op", op, "name", name)
	if err := validator.Check(s.validator, credentials{Name: name}); err != nil {
		log.Info("invalid name", "errMsg", err.Error())
		return nil, nil, err
	}
	user, err := s.storage.InsertUser(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			log.Info("name already taken")
			return nil, nil, ErrAlreadyExists
		}
		log.Error(err.Error())
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.NewToken(user)
	if err != nil {
		log.Error("failed to sign token", "errMsg", err.Error())
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login opens a session for an existing user. There is no password: knowing
// the name is enough.
func (s *AccountsService) Login(ctx context.Context, name string) (*models.User, *models.AuthToken, error) {
	const op = "accounts.AccountsService.Login"
	name = NormalizeName(name)
	log := s.log.With("op", op, "name", name)
	if err := validator.Check(s.validator, credentials{Name: name}); err != nil {
		return nil, nil, err
	}
	user, err := s.storage.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("user not found")
			return nil, nil, ErrUserNotFound
		}
		log.Error(err.Error())
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.NewToken(user)
	if err != nil {
		log.Error("failed to sign token", "errMsg", err.Error())
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, token, nil
}

func (s *AccountsService) NewToken(user *models.User) (*models.AuthToken, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &models.AuthToken{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// ParseToken checks the signature and expiry of token and returns its claims.
func (s *AccountsService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves the user a session token belongs to. A token of a
// user that no longer exists is invalid.
func (s *AccountsService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "accounts.AccountsService.Authenticate"
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Warn("token of a deleted user", "op", op, "user_id", claims.UserID)
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *AccountsService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "accounts.AccountsService.GetUser"
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.log.Error(err.Error(), "op", op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
