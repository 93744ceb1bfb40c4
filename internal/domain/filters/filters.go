package filters

import (
	"errors"
	"strings"
)

const (
	AscSort  = "ASC"
	DescSort = "DESC"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MovieSortSafelist holds the catalog columns a client may sort by.
var MovieSortSafelist = []string{"id", "title", "year", "community_rating", "created_at"}

type Filters struct {
	Page         int      `schema:"page" validate:"omitempty,gte=1,lte=10000000"`
	PageSize     int      `schema:"page_size" validate:"omitempty,gte=1,lte=100"`
	Sort         string   `schema:"sort" validate:"omitempty,sortsafelist"`
	SortSafelist []string `schema:"-"`
}

// Normalize fills zero values with defaults.
func (f *Filters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Sort == "" {
		f.Sort = "title"
	}
	if f.SortSafelist == nil {
		f.SortSafelist = MovieSortSafelist
	}
}

// Permitted reports whether sort names a column from the safelist (optionally prefixed by "-").
func (f *Filters) Permitted(sort string) bool {
	s := strings.TrimPrefix(sort, "-")
	for _, safeValue := range f.SortSafelist {
		if strings.EqualFold(s, safeValue) {
			return true
		}
	}
	return false
}

func (f *Filters) SortColumn() string {
	s := strings.TrimPrefix(f.Sort, "-")
	for _, safeValue := range f.SortSafelist {
		if strings.EqualFold(s, safeValue) {
			return safeValue
		}
	}
	panic(errors.New("Unknown sort column: " + f.Sort))
}

func (f *Filters) SortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return DescSort
	}
	return AscSort
}

func (f *Filters) Limit() int {
	return f.PageSize
}

func (f *Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records"`
}

func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		TotalRecords: totalRecords,
	}
}
