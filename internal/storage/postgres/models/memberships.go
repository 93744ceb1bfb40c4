package models

import (
	"context"
	"time"

	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage"
	"movieweb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
)

type MembershipModel struct {
	DB postgres.Querier
}

func (m *MembershipModel) InsertMembership(ctx context.Context, userID, movieID int64, rating *float64) (*models.Membership, error) {
	rows, _ := m.DB.Query(
		ctx,
		`INSERT INTO memberships (user_id, movie_id, user_rating) VALUES ($1, $2, $3)
		RETURNING user_id, movie_id, user_rating, created_at`,
		userID,
		movieID,
		rating,
	)
	membership, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Membership])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &membership, nil
}

func (m *MembershipModel) GetMembership(ctx context.Context, userID, movieID int64) (*models.Membership, error) {
	rows, _ := m.DB.Query(
		ctx,
		"SELECT user_id, movie_id, user_rating, created_at FROM memberships WHERE user_id = $1 AND movie_id = $2",
		userID,
		movieID,
	)
	membership, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Membership])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &membership, nil
}

func (m *MembershipModel) UpdateMembershipRating(ctx context.Context, userID, movieID int64, rating *float64) (*models.Membership, error) {
	rows, _ := m.DB.Query(
		ctx,
		`UPDATE memberships SET user_rating = $1 WHERE user_id = $2 AND movie_id = $3
		RETURNING user_id, movie_id, user_rating, created_at`,
		rating,
		userID,
		movieID,
	)
	membership, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Membership])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &membership, nil
}

func (m *MembershipModel) DeleteMembership(ctx context.Context, userID, movieID int64) error {
	status, err := m.DB.Exec(ctx, "DELETE FROM memberships WHERE user_id = $1 AND movie_id = $2", userID, movieID)
	if err != nil {
		return postgres.MapError(err)
	}
	if status.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (m *MembershipModel) CountMemberships(ctx context.Context, movieID int64) (int, error) {
	var count int
	err := m.DB.QueryRow(ctx, "SELECT count(*) FROM memberships WHERE movie_id = $1", movieID).Scan(&count)
	if err != nil {
		return 0, postgres.MapError(err)
	}
	return count, nil
}

func (m *MembershipModel) MembershipRatings(ctx context.Context, movieID int64) ([]float64, error) {
	rows, _ := m.DB.Query(
		ctx,
		"SELECT user_rating FROM memberships WHERE movie_id = $1 AND user_rating IS NOT NULL ORDER BY user_id",
		movieID,
	)
	ratings, err := pgx.CollectRows(rows, pgx.RowTo[float64])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return ratings, nil
}

func (m *MembershipModel) UserList(ctx context.Context, userID int64) ([]models.ListEntry, error) {
	rows, _ := m.DB.Query(ctx, `
	SELECT m.id, m.external_id, m.title, m.original_title, m.year, m.director, m.writer, m.actors,
		m.runtime, m.genre, m.plot, m.language, m.country, m.awards, m.poster_url, m.imdb_rating,
		m.imdb_votes, m.metascore, m.rated, m.community_rating, m.community_rating_count, m.created_at,
		ms.user_rating, ms.created_at AS added_at
	FROM memberships ms
	JOIN movies m ON m.id = ms.movie_id
	WHERE ms.user_id = $1
	ORDER BY ms.created_at DESC, m.id DESC`, userID)
	type row struct {
		models.Movie
		UserRating *float64  `db:"user_rating"`
		AddedAt    time.Time `db:"added_at"`
	}
	outputRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	entries := make([]models.ListEntry, 0, len(outputRows))
	for _, r := range outputRows {
		entries = append(entries, models.ListEntry{Movie: r.Movie, UserRating: r.UserRating, AddedAt: r.AddedAt})
	}
	return entries, nil
}
