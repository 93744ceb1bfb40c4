package models

import (
	"context"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
)

type UserModel struct {
	DB postgres.Querier
}

func (m *UserModel) InsertUser(ctx context.Context, name string) (*models.User, error) {
	rows, _ := m.DB.Query(ctx, "INSERT INTO users (name) VALUES ($1) RETURNING id, name, created_at", name)
	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &user, nil
}

func (m *UserModel) GetUser(ctx context.Context, id int64) (*models.User, error) {
	rows, _ := m.DB.Query(ctx, "SELECT id, name, created_at FROM users WHERE id = $1", id)
	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &user, nil
}

func (m *UserModel) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	rows, _ := m.DB.Query(ctx, "SELECT id, name, created_at FROM users WHERE name = $1", name)
	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &user, nil
}

func (m *UserModel) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	rows, _ := m.DB.Query(ctx, `
	SELECT u.id, u.name, u.created_at, count(ms.movie_id) AS movie_count
	FROM users u
	LEFT JOIN memberships ms ON ms.user_id = u.id
	GROUP BY u.id
	ORDER BY u.name ASC`)
	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.UserSummary])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return users, nil
}
