package models

import (
	"context"
	"fmt"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage"
	"movieweb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
)

const movieColumns = `id, external_id, title, original_title, year, director, writer, actors,
	runtime, genre, plot, language, country, awards, poster_url, imdb_rating, imdb_votes,
	metascore, rated, community_rating, community_rating_count, created_at`

type MovieModel struct {
	DB postgres.Querier
}

func (m *MovieModel) InsertMovie(ctx context.Context, externalID *string, meta models.MovieMetadata) (*models.Movie, error) {
	rows, _ := m.DB.Query(
		ctx,
		`INSERT INTO movies (external_id, title, original_title, year, director, writer, actors,
		runtime, genre, plot, language, country, awards, poster_url, imdb_rating, imdb_votes, metascore, rated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+movieColumns,
		externalID,
		meta.Title,
		meta.OriginalTitle,
		meta.Year,
		meta.Director,
		meta.Writer,
		meta.Actors,
		meta.Runtime,
		meta.Genre,
		meta.Plot,
		meta.Language,
		meta.Country,
		meta.Awards,
		meta.PosterURL,
		meta.IMDbRating,
		meta.IMDbVotes,
		meta.Metascore,
		meta.Rated,
	)
	movie, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Movie])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &movie, nil
}

func (m *MovieModel) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	rows, _ := m.DB.Query(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = $1", id)
	movie, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Movie])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &movie, nil
}

func (m *MovieModel) GetMovieByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	rows, _ := m.DB.Query(ctx, "SELECT "+movieColumns+" FROM movies WHERE external_id = $1", externalID)
	movie, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Movie])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return &movie, nil
}

func (m *MovieModel) ListMovies(ctx context.Context, title string, filters filters.Filters) ([]models.Movie, int, error) {
	query := fmt.Sprintf(`
	SELECT count(*) OVER() AS total, %s FROM movies
	WHERE ($1 = '' OR title ILIKE '%%' || $1 || '%%')
	ORDER BY %s %s NULLS LAST, id ASC
	LIMIT $2 OFFSET $3
	`, movieColumns, filters.SortColumn(), filters.SortDirection())
	rows, _ := m.DB.Query(ctx, query, title, filters.Limit(), filters.Offset())
	type row struct {
		Total int `db:"total"`
		models.Movie
	}
	outputRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, 0, postgres.MapError(err)
	}
	movies := make([]models.Movie, 0, len(outputRows))
	for _, row := range outputRows {
		movies = append(movies, row.Movie)
	}
	totalRecords := 0
	if len(outputRows) > 0 {
		totalRecords = outputRows[0].Total
	}
	return movies, totalRecords, nil
}

func (m *MovieModel) TopRatedMovies(ctx context.Context, limit int) ([]models.Movie, error) {
	rows, _ := m.DB.Query(ctx, `
	SELECT `+movieColumns+` FROM movies
	WHERE community_rating_count > 0
	ORDER BY community_rating DESC, community_rating_count DESC, title ASC
	LIMIT $1`, limit)
	movies, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Movie])
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return movies, nil
}

func (m *MovieModel) DeleteMovie(ctx context.Context, id int64) error {
	status, err := m.DB.Exec(ctx, "DELETE FROM movies WHERE id = $1", id)
	if err != nil {
		return postgres.MapError(err)
	}
	if status.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (m *MovieModel) LockMovie(ctx context.Context, id int64) error {
	var lockedID int64
	err := m.DB.QueryRow(ctx, "SELECT id FROM movies WHERE id = $1 FOR UPDATE", id).Scan(&lockedID)
	return postgres.MapError(err)
}

func (m *MovieModel) SetCommunityRating(ctx context.Context, id int64, rating *float64, count int) error {
	status, err := m.DB.Exec(
		ctx,
		"UPDATE movies SET community_rating = $1, community_rating_count = $2 WHERE id = $3",
		rating,
		count,
		id,
	)
	if err != nil {
		return postgres.MapError(err)
	}
	if status.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
