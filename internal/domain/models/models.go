package models

import (
	"time"
)

type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AnonymousUser is stored in the request context when no session token was sent.
var AnonymousUser = &User{}

func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

// UserSummary is a user row decorated with the size of their list.
type UserSummary struct {
	User
	MovieCount int `json:"movie_count" db:"movie_count"`
}

// Movie is a catalog row shared by every user that has it in their list.
type Movie struct {
	ID            int64   `json:"id" db:"id"`
	ExternalID    *string `json:"external_id,omitempty" db:"external_id"`
	Title         string  `json:"title" db:"title"`
	OriginalTitle *string `json:"original_title,omitempty" db:"original_title"`
	Year          *int32  `json:"year,omitempty" db:"year"`
	Director      *string `json:"director,omitempty" db:"director"`
	Writer        *string `json:"writer,omitempty" db:"writer"`
	Actors        *string `json:"actors,omitempty" db:"actors"`
	Runtime       *string `json:"runtime,omitempty" db:"runtime"`
	Genre         *string `json:"genre,omitempty" db:"genre"`
	Plot          *string `json:"plot,omitempty" db:"plot"`
	Language      *string `json:"language,omitempty" db:"language"`
	Country       *string `json:"country,omitempty" db:"country"`
	Awards        *string `json:"awards,omitempty" db:"awards"`
	PosterURL     *string `json:"poster_url,omitempty" db:"poster_url"`
	IMDbRating    *string `json:"imdb_rating,omitempty" db:"imdb_rating"`
	IMDbVotes     *string `json:"imdb_votes,omitempty" db:"imdb_votes"`
	Metascore     *string `json:"metascore,omitempty" db:"metascore"`
	Rated         *string `json:"rated,omitempty" db:"rated"`

	// derived from memberships, written only by the rating aggregator
	CommunityRating      *float64  `json:"community_rating" db:"community_rating"`
	CommunityRatingCount int       `json:"community_rating_count" db:"community_rating_count"`
	CreatedAt            time.Time `json:"-" db:"created_at"`
}

// Metadata returns the descriptive fields of the movie.
func (m *Movie) Metadata() MovieMetadata {
	return MovieMetadata{
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Year:          m.Year,
		Director:      m.Director,
		Writer:        m.Writer,
		Actors:        m.Actors,
		Runtime:       m.Runtime,
		Genre:         m.Genre,
		Plot:          m.Plot,
		Language:      m.Language,
		Country:       m.Country,
		Awards:        m.Awards,
		PosterURL:     m.PosterURL,
		IMDbRating:    m.IMDbRating,
		IMDbVotes:     m.IMDbVotes,
		Metascore:     m.Metascore,
		Rated:         m.Rated,
	}
}

// MovieMetadata is the descriptive part of a movie as supplied by a caller or
// by the metadata provider. It never carries the derived rating fields.
type MovieMetadata struct {
	Title         string  `json:"title" validate:"notblank,max=255"`
	OriginalTitle *string `json:"original_title,omitempty" validate:"omitempty,max=255"`
	Year          *int32  `json:"year,omitempty" validate:"omitempty,movieyear"`
	Director      *string `json:"director,omitempty" validate:"omitempty,max=255"`
	Writer        *string `json:"writer,omitempty"`
	Actors        *string `json:"actors,omitempty"`
	Runtime       *string `json:"runtime,omitempty" validate:"omitempty,max=50"`
	Genre         *string `json:"genre,omitempty" validate:"omitempty,max=255"`
	Plot          *string `json:"plot,omitempty"`
	Language      *string `json:"language,omitempty" validate:"omitempty,max=255"`
	Country       *string `json:"country,omitempty" validate:"omitempty,max=255"`
	Awards        *string `json:"awards,omitempty"`
	PosterURL     *string `json:"poster_url,omitempty" validate:"omitempty,max=500"`
	IMDbRating    *string `json:"imdb_rating,omitempty" validate:"omitempty,max=10"`
	IMDbVotes     *string `json:"imdb_votes,omitempty" validate:"omitempty,max=50"`
	Metascore     *string `json:"metascore,omitempty" validate:"omitempty,max=10"`
	Rated         *string `json:"rated,omitempty" validate:"omitempty,max=20"`
}

// ProviderMovie is a metadata provider lookup result.
type ProviderMovie struct {
	ExternalID      string        `json:"external_id"`
	Metadata        MovieMetadata `json:"metadata"`
	SuggestedRating *float64      `json:"suggested_rating,omitempty"` // Provider rating on the 0-5 scale
}

type Membership struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	MovieID    int64     `json:"movie_id" db:"movie_id"`
	UserRating *float64  `json:"user_rating" db:"user_rating"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ListEntry is one movie of a user's list together with that user's rating.
type ListEntry struct {
	Movie      Movie     `json:"movie"`
	UserRating *float64  `json:"user_rating"`
	AddedAt    time.Time `json:"added_at"`
}

type Comment struct {
	ID         int64     `json:"id" db:"id"`
	MovieID    int64     `json:"movie_id" db:"movie_id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	UserName   string    `json:"user" db:"user_name"`
	Text       string    `json:"text" db:"text"`
	LikesCount int       `json:"likes_count" db:"likes_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type AuthToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
