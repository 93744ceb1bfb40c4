package models

import (
	"context"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
)

type CommentModel struct {
	DB postgres.Querier
}

func (m *CommentModel) InsertComment(ctx context.Context, movieID, userID int64, text string) (*models.Comment, error) {
	rows, _ := m.DB.Query(ctx, `
	WITH c AS (
		INSERT INTO comments (movie_id, user_id, text) VALUES ($1, $2, $3)
		RETURNING id, movie_id, user_id, text, likes_count, created_at
	)
	SELECT c.id, c.movie_id, c.user_id, u.name AS user_name, c.text, c.likes_count, c.created_at
	FROM c JOIN users u ON u.id = c.user_id`, movieID, userID, text)
	comment, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Comment])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &comment, nil
}

func (m *CommentModel) ListComments(ctx context.Context, movieID int64) ([]models.Comment, error) {
	rows, _ := m.DB.Query(ctx, `
	SELECT c.id, c.movie_id, c.user_id, u.name AS user_name, c.text, c.likes_count, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.user_id
	WHERE c.movie_id = $1
	ORDER BY c.created_at DESC, c.id DESC`, movieID)
	comments, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Comment])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return comments, nil
}
