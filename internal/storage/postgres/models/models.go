package models

import (
	"context"

	"movieweb/proj/internal/storage"
	"movieweb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
)

// Models groups the per-table query sets over one Querier.
type Models struct {
	*UserModel
	*MovieModel
	*MembershipModel
	*CommentModel
}

func New(db postgres.Querier) *Models {
	return &Models{
		UserModel:       &UserModel{DB: db},
		MovieModel:      &MovieModel{DB: db},
		MembershipModel: &MembershipModel{DB: db},
		CommentModel:    &CommentModel{DB: db},
	}
}

// Storage is the postgres implementation of storage.Storage.
type Storage struct {
	*Models
	db *postgres.PostgresDB
}

var _ storage.Storage = (*Storage)(nil)

func NewStorage(db *postgres.PostgresDB) *Storage {
	return &Storage{Models: New(db.Conn), db: db}
}

func (s *Storage) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

func (s *Storage) Close() {
	s.db.Close()
}
