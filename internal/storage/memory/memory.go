// Package memory is an in-process storage.Storage. Transactions run one at a
// time against a copy of the state that replaces the original on commit.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"movieweb/proj/internal/domain/filters"
	"movieweb/proj/internal/domain/models"
	"movieweb/proj/internal/storage"
)

type membershipKey struct {
	userID  int64
	movieID int64
}

type membershipRow struct {
	models.Membership
	seq int64
}

type state struct {
	users       map[int64]models.User
	movies      map[int64]models.Movie
	memberships map[membershipKey]membershipRow
	comments    map[int64]models.Comment

	lastUserID    int64
	lastMovieID   int64
	lastCommentID int64
	seq           int64
}

func newState() *state {
	return &state{
		users:       make(map[int64]models.User),
		movies:      make(map[int64]models.Movie),
		memberships: make(map[membershipKey]membershipRow),
		comments:    make(map[int64]models.Comment),
	}
}

func (s *state) clone() *state {
	c := *s
	c.users = maps.Clone(s.users)
	c.movies = maps.Clone(s.movies)
	c.memberships = maps.Clone(s.memberships)
	c.comments = maps.Clone(s.comments)
	return &c
}

type Store struct {
	*queries
	mu sync.Mutex
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.queries = &queries{st: newState(), now: time.Now, mu: &s.mu}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &queries{st: s.st.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *Store) Close() {}

// queries operates on a state. mu is nil when bound to a transaction, whose
// owner already holds the store lock.
type queries struct {
	st  *state
	now func() time.Time
	mu  *sync.Mutex
}

func (q *queries) locked() func() {
	if q.mu == nil {
		return func() {}
	}
	q.mu.Lock()
	return q.mu.Unlock
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (q *queries) InsertUser(_ context.Context, name string) (*models.User, error) {
	defer q.locked()()
	for _, u := range q.st.users {
		if u.Name == name {
			return nil, storage.ErrConflict
		}
	}
	q.st.lastUserID++
	user := models.User{ID: q.st.lastUserID, Name: name, CreatedAt: q.now()}
	q.st.users[user.ID] = user
	return &user, nil
}

func (q *queries) GetUser(_ context.Context, id int64) (*models.User, error) {
	defer q.locked()()
	user, ok := q.st.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

func (q *queries) GetUserByName(_ context.Context, name string) (*models.User, error) {
	defer q.locked()()
	for _, u := range q.st.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (q *queries) ListUsers(_ context.Context) ([]models.UserSummary, error) {
	defer q.locked()()
	counts := make(map[int64]int)
	for key := range q.st.memberships {
		counts[key.userID]++
	}
	users := make([]models.UserSummary, 0, len(q.st.users))
	for _, u := range q.st.users {
		users = append(users, models.UserSummary{User: u, MovieCount: counts[u.ID]})
	}
	slices.SortFunc(users, func(a, b models.UserSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return users, nil
}

func (q *queries) InsertMovie(_ context.Context, externalID *string, meta models.MovieMetadata) (*models.Movie, error) {
	defer q.locked()()
	if externalID != nil {
		for _, m := range q.st.movies {
			if m.ExternalID != nil && *m.ExternalID == *externalID {
				return nil, storage.ErrConflict
			}
		}
	}
	q.st.lastMovieID++
	movie := models.Movie{
		ID:            q.st.lastMovieID,
		ExternalID:    copyOf(externalID),
		Title:         meta.Title,
		OriginalTitle: copyOf(meta.OriginalTitle),
		Year:          copyOf(meta.Year),
		Director:      copyOf(meta.Director),
		Writer:        copyOf(meta.Writer),
		Actors:        copyOf(meta.Actors),
		Runtime:       copyOf(meta.Runtime),
		Genre:         copyOf(meta.Genre),
		Plot:          copyOf(meta.Plot),
		Language:      copyOf(meta.Language),
		Country:       copyOf(meta.Country),
		Awards:        copyOf(meta.Awards),
		PosterURL:     copyOf(meta.PosterURL),
		IMDbRating:    copyOf(meta.IMDbRating),
		IMDbVotes:     copyOf(meta.IMDbVotes),
		Metascore:     copyOf(meta.Metascore),
		Rated:         copyOf(meta.Rated),
		CreatedAt:     q.now(),
	}
	q.st.movies[movie.ID] = movie
	return &movie, nil
}

func (q *queries) GetMovie(_ context.Context, id int64) (*models.Movie, error) {
	defer q.locked()()
	movie, ok := q.st.movies[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &movie, nil
}

func (q *queries) GetMovieByExternalID(_ context.Context, externalID string) (*models.Movie, error) {
	defer q.locked()()
	for _, m := range q.st.movies {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			return &m, nil
		}
	}
	return nil, storage.ErrNotFound
}

func compareNullable[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

func compareMovies(column string, a, b models.Movie) int {
	switch column {
	case "title":
		return cmp.Compare(a.Title, b.Title)
	case "year":
		return compareNullable(a.Year, b.Year)
	case "community_rating":
		return compareNullable(a.CommunityRating, b.CommunityRating)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return cmp.Compare(a.ID, b.ID)
}

func (q *queries) ListMovies(_ context.Context, title string, f filters.Filters) ([]models.Movie, int, error) {
	defer q.locked()()
	needle := strings.ToLower(title)
	matched := make([]models.Movie, 0)
	for _, m := range q.st.movies {
		if needle == "" || strings.Contains(strings.ToLower(m.Title), needle) {
			matched = append(matched, m)
		}
	}
	column, desc := f.SortColumn(), f.SortDirection() == filters.DescSort
	slices.SortFunc(matched, func(a, b models.Movie) int {
		c := compareMovies(column, a, b)
		// nulls stay last in both directions
		if desc && !isNullSortValue(column, a) && !isNullSortValue(column, b) {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit(), total)
	return matched[start:end], total, nil
}

func isNullSortValue(column string, m models.Movie) bool {
	switch column {
	case "year":
		return m.Year == nil
	case "community_rating":
		return m.CommunityRating == nil
	}
	return false
}

func (q *queries) TopRatedMovies(_ context.Context, limit int) ([]models.Movie, error) {
	defer q.locked()()
	rated := make([]models.Movie, 0)
	for _, m := range q.st.movies {
		if m.CommunityRatingCount > 0 && m.CommunityRating != nil {
			rated = append(rated, m)
		}
	}
	slices.SortFunc(rated, func(a, b models.Movie) int {
		return cmp.Or(
			cmp.Compare(*b.CommunityRating, *a.CommunityRating),
			cmp.Compare(b.CommunityRatingCount, a.CommunityRatingCount),
			cmp.Compare(a.Title, b.Title),
		)
	})
	if len(rated) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}

func (q *queries) DeleteMovie(_ context.Context, id int64) error {
	defer q.locked()()
	if _, ok := q.st.movies[id]; !ok {
		return storage.ErrNotFound
	}
	delete(q.st.movies, id)
	for key := range q.st.memberships {
		if key.movieID == id {
			delete(q.st.memberships, key)
		}
	}
	for cid, c := range q.st.comments {
		if c.MovieID == id {
			delete(q.st.comments, cid)
		}
	}
	return nil
}

func (q *queries) LockMovie(_ context.Context, id int64) error {
	defer q.locked()()
	if _, ok := q.st.movies[id]; !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (q *queries) SetCommunityRating(_ context.Context, id int64, rating *float64, count int) error {
	defer q.locked()()
	movie, ok := q.st.movies[id]
	if !ok {
		return storage.ErrNotFound
	}
	movie.CommunityRating = copyOf(rating)
	movie.CommunityRatingCount = count
	q.st.movies[id] = movie
	return nil
}

func (q *queries) InsertMembership(_ context.Context, userID, movieID int64, rating *float64) (*models.Membership, error) {
	defer q.locked()()
	if _, ok := q.st.users[userID]; !ok {
		return nil, storage.ErrNotFound
	}
	if _, ok := q.st.movies[movieID]; !ok {
		return nil, storage.ErrNotFound
	}
	key := membershipKey{userID: userID, movieID: movieID}
	if _, ok := q.st.memberships[key]; ok {
		return nil, storage.ErrConflict
	}
	q.st.seq++
	row := membershipRow{
		Membership: models.Membership{UserID: userID, MovieID: movieID, UserRating: copyOf(rating), CreatedAt: q.now()},
		seq:        q.st.seq,
	}
	q.st.memberships[key] = row
	membership := row.Membership
	return &membership, nil
}

func (q *queries) GetMembership(_ context.Context, userID, movieID int64) (*models.Membership, error) {
	defer q.locked()()
	row, ok := q.st.memberships[membershipKey{userID: userID, movieID: movieID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	membership := row.Membership
	return &membership, nil
}

func (q *queries) UpdateMembershipRating(_ context.Context, userID, movieID int64, rating *float64) (*models.Membership, error) {
	defer q.locked()()
	key := membershipKey{userID: userID, movieID: movieID}
	row, ok := q.st.memberships[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	row.UserRating = copyOf(rating)
	q.st.memberships[key] = row
	membership := row.Membership
	return &membership, nil
}

func (q *queries) DeleteMembership(_ context.Context, userID, movieID int64) error {
	defer q.locked()()
	key := membershipKey{userID: userID, movieID: movieID}
	if _, ok := q.st.memberships[key]; !ok {
		return storage.ErrNotFound
	}
	delete(q.st.memberships, key)
	return nil
}

func (q *queries) CountMemberships(_ context.Context, movieID int64) (int, error) {
	defer q.locked()()
	count := 0
	for key := range q.st.memberships {
		if key.movieID == movieID {
			count++
		}
	}
	return count, nil
}

func (q *queries) MembershipRatings(_ context.Context, movieID int64) ([]float64, error) {
	defer q.locked()()
	rows := make([]membershipRow, 0)
	for key, row := range q.st.memberships {
		if key.movieID == movieID && row.UserRating != nil {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b membershipRow) int { return cmp.Compare(a.UserID, b.UserID) })
	ratings := make([]float64, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, *row.UserRating)
	}
	return ratings, nil
}

func (q *queries) UserList(_ context.Context, userID int64) ([]models.ListEntry, error) {
	defer q.locked()()
	rows := make([]membershipRow, 0)
	for key, row := range q.st.memberships {
		if key.userID == userID {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b membershipRow) int { return cmp.Compare(b.seq, a.seq) })
	entries := make([]models.ListEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.ListEntry{
			Movie:      q.st.movies[row.MovieID],
			UserRating: copyOf(row.UserRating),
			AddedAt:    row.CreatedAt,
		})
	}
	return entries, nil
}

func (q *queries) InsertComment(_ context.Context, movieID, userID int64, text string) (*models.Comment, error) {
	defer q.locked()()
	user, ok := q.st.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if _, ok := q.st.movies[movieID]; !ok {
		return nil, storage.ErrNotFound
	}
	q.st.lastCommentID++
	comment := models.Comment{
		ID:        q.st.lastCommentID,
		MovieID:   movieID,
		UserID:    userID,
		UserName:  user.Name,
		Text:      text,
		CreatedAt: q.now(),
	}
	q.st.comments[comment.ID] = comment
	return &comment, nil
}

func (q *queries) ListComments(_ context.Context, movieID int64) ([]models.Comment, error) {
	defer q.locked()()
	comments := make([]models.Comment, 0)
	for _, c := range q.st.comments {
		if c.MovieID == movieID {
			comments = append(comments, c)
		}
	}
	slices.SortFunc(comments, func(a, b models.Comment) int { return cmp.Compare(b.ID, a.ID) })
	return comments, nil
}
