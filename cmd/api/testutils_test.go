package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"movieweb/proj/internal/cache"
	"movieweb/proj/internal/clients/omdb"
	"movieweb/proj/internal/config"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/lib/logger"
	"movieweb/proj/internal/storage/memory"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type stubMetadata struct {
	movies   map[string]*models.ProviderMovie
	searches int
	lookups  int
	err      error
}

func (s *stubMetadata) SearchByTitle(_ context.Context, title string, _ *int32) (*models.ProviderMovie, error) {
	s.searches++
	for _, m := range s.movies {
		if strings.EqualFold(m.Metadata.Title, title) {
			return m, nil
		}
	}
	return nil, omdb.ErrNotFound
}

func (s *stubMetadata) GetByID(_ context.Context, externalID string) (*models.ProviderMovie, error) {
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	if m, ok := s.movies[externalID]; ok {
		return m, nil
	}
	return nil, omdb.ErrNotFound
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, string, float64, int) (string, error) {
	return s.reply, s.err
}

func shawshankProvider() *models.ProviderMovie {
	year := int32(1994)
	director := "Frank Darabont"
	suggested := 4.5
	return &models.ProviderMovie{
		ExternalID:      "tt0111161",
		Metadata:        models.MovieMetadata{Title: "The Shawshank Redemption", Year: &year, Director: &director},
		SuggestedRating: &suggested,
	}
}

type testApp struct {
	*Application
	t         *testing.T
	store     *memory.Store
	mem       *cache.Memory
	metadata  *stubMetadata
	completer *stubCompleter
	handler   http.Handler
}

const testAdminKey = "test-admin-key"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{ShutdownTimeout: time.Second},
		Storage: config.Storage{Driver: config.StorageDriverMemory},
		Auth: config.Auth{
			Secret:   "test-secret",
			TokenTTL: time.Hour,
			Admins:   []string{"admin"},
			AdminKey: testAdminKey,
		},
		Cache:   config.Cache{Enabled: true, Driver: config.CacheDriverMemory, TTL: time.Minute},
		Limiter: config.Limiter{Enabled: false, Rps: 10, Burst: 5, AccountsRpm: 1000},
	}
}

func NewTestApplication(cfg *config.Config, t *testing.T) *testApp {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	store := memory.New()
	mem := cache.NewMemory(0)
	t.Cleanup(func() { mem.Close() })
	metadata := &stubMetadata{movies: map[string]*models.ProviderMovie{"tt0111161": shawshankProvider()}}
	completer := &stubCompleter{reply: "Heat"}
	app := NewApplication(cfg, logger.Discard(), Deps{
		Storage:   store,
		Cache:     mem,
		Metadata:  metadata,
		Completer: completer,
	})
	return &testApp{
		Application: app,
		t:           t,
		store:       store,
		mem:         mem,
		metadata:    metadata,
		completer:   completer,
		handler:     app.routes(),
	}
}

type testResponse struct {
	Status int
	Header http.Header
	Body   Response
	Raw    string
}

func (ta *testApp) do(method, path, token string, body any) testResponse {
	ta.t.Helper()
	return ta.doWithHeader(method, path, token, nil, body)
}

func (ta *testApp) doWithHeader(method, path, token string, header http.Header, body any) testResponse {
	ta.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ta.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range header {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	res := testResponse{Status: rec.Code, Header: rec.Header(), Raw: rec.Body.String()}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &res.Body)
	}
	return res
}

// register creates an account through the API and returns its id and token.
func (ta *testApp) register(name string) (int64, string) {
	ta.t.Helper()
	res := ta.do(http.MethodPost, "/api/v1/accounts/register", "", map[string]string{"name": name})
	require.Equal(ta.t, http.StatusCreated, res.Status, res.Raw)
	user := res.Body.Data["user"].(map[string]any)
	token := res.Body.Data["token"].(map[string]any)
	return int64(user["id"].(float64)), token["access_token"].(string)
}

func dataMap(t *testing.T, res testResponse, key string) map[string]any {
	t.Helper()
	v, ok := res.Body.Data[key].(map[string]any)
	require.True(t, ok, "missing %q in %s", key, res.Raw)
	return v
}

func dataList(t *testing.T, res testResponse, key string) []any {
	t.Helper()
	v, ok := res.Body.Data[key].([]any)
	require.True(t, ok, "missing %q in %s", key, res.Raw)
	return v
}
