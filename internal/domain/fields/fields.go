package fields

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinRating  = 0.0
	MaxRating  = 5.0
	RatingStep = 0.5

	// First year a motion picture is known to exist.
	MinMovieYear = 1888
)

// ValidRating reports whether r is in [MinRating, MaxRating] and a multiple of RatingStep.
func ValidRating(r float64) bool {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return false
	}
	steps := r / RatingStep
	return steps == math.Trunc(steps)
}

// ValidMovieYear reports whether year lies between MinMovieYear and the year of now.
func ValidMovieYear(year int64, now time.Time) bool {
	return year >= MinMovieYear && year <= int64(now.Year())
}

// RatingFromProvider converts a provider rating on a 0-10 scale (e.g. "9.3")
// into a 0-5 rating rounded to the nearest half step. ok is false when the
// value is missing ("N/A") or not numeric.
func RatingFromProvider(raw string) (rating float64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0, false
	}
	rating10, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	rating = math.Round(rating10/2*2) / 2
	if !ValidRating(rating) {
		return 0, false
	}
	return rating, true
}

// YearFromProvider parses the leading year of values like "1994", "2008–2013" or "2019-".
func YearFromProvider(raw string) (year int32, ok bool) {
	raw = strings.TrimSpace(raw)
	if end := strings.IndexAny(raw, "–-"); end >= 0 {
		raw = raw[:end]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
