// Package omdb looks movies up in the OMDb metadata API.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"movieweb/proj/internal/clients"
	"movieweb/proj/internal/domain/fields"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/metrics"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "omdb-api"

var (
	ErrNotFound      = errors.New("movie not found by the metadata provider")
	ErrNotConfigured = errors.New("metadata provider api key is not configured")
)

type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[*movieResponse]
}

func New(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		cb:      clients.NewBreaker[*movieResponse](log, breakerName, 2*time.Minute, ErrNotFound),
	}
}

type movieResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Writer     string `json:"Writer"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Awards     string `json:"Awards"`
	Poster     string `json:"Poster"`
	Metascore  string `json:"Metascore"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
	IMDbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// SearchByTitle returns the best match for title, optionally narrowed by year.
func (c *Client) SearchByTitle(ctx context.Context, title string, year *int32) (*models.ProviderMovie, error) {
	params := url.Values{"t": {title}}
	if year != nil {
		params.Set("y", strconv.Itoa(int(*year)))
	}
	return c.lookup(ctx, params)
}

// GetByID returns the movie with the given IMDb id.
func (c *Client) GetByID(ctx context.Context, externalID string) (*models.ProviderMovie, error) {
	return c.lookup(ctx, url.Values{"i": {externalID}})
}

func (c *Client) lookup(ctx context.Context, params url.Values) (*models.ProviderMovie, error) {
	const op = "omdb.Client.lookup"
	log := c.log.With("op", op, "query", params.Encode())
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params.Set("apikey", c.apiKey)
	start := time.Now()
	resp, err := c.cb.Execute(func() (*movieResponse, error) {
		return c.do(ctx, params)
	})
	metrics.RecordExternalRequest(breakerName, err, time.Since(start))
	if err != nil {
		err = clients.BreakerError(err)
		if !errors.Is(err, ErrNotFound) {
			log.Error("metadata lookup failed", "errMsg", err.Error())
		}
		return nil, err
	}
	return resp.toProviderMovie(), nil
}

func (c *Client) do(ctx context.Context, params url.Values) (*movieResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading omdb response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb responded with status %d", res.StatusCode)
	}
	var movie movieResponse
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("decoding omdb response: %w", err)
	}
	if movie.Response != "True" {
		if strings.Contains(strings.ToLower(movie.Error), "not found") || movie.Error == "Incorrect IMDb ID." {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("omdb error: %s", movie.Error)
	}
	return &movie, nil
}

// optional treats empty values and the provider's "N/A" as absent.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == "N/A" {
		return nil
	}
	return &v
}

func (m *movieResponse) toProviderMovie() *models.ProviderMovie {
	meta := models.MovieMetadata{
		Title:      strings.TrimSpace(m.Title),
		Director:   optional(m.Director),
		Writer:     optional(m.Writer),
		Actors:     optional(m.Actors),
		Runtime:    optional(m.Runtime),
		Genre:      optional(m.Genre),
		Plot:       optional(m.Plot),
		Language:   optional(m.Language),
		Country:    optional(m.Country),
		Awards:     optional(m.Awards),
		PosterURL:  optional(m.Poster),
		IMDbRating: optional(m.IMDbRating),
		IMDbVotes:  optional(m.IMDbVotes),
		Metascore:  optional(m.Metascore),
		Rated:      optional(m.Rated),
	}
	// announced releases carry future years; they are kept without one
	if year, ok := fields.YearFromProvider(m.Year); ok && fields.ValidMovieYear(int64(year), time.Now()) {
		meta.Year = &year
	}
	movie := &models.ProviderMovie{ExternalID: strings.TrimSpace(m.IMDbID), Metadata: meta}
	if rating, ok := fields.RatingFromProvider(m.IMDbRating); ok {
		movie.SuggestedRating = &rating
	}
	return movie
}
