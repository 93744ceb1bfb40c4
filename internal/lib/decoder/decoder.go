package decoder

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/schema"
)

// DecodeError lists the query parameters that could not be converted.
type DecodeError struct {
	Errors map[string]string
}

func (e *DecodeError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "url decoder: invalid parameters: " + strings.Join(keys, ", ")
}

type URLDecoder struct {
	dec *schema.Decoder
}

func New() *URLDecoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	dec.ZeroEmpty(true)
	return &URLDecoder{dec: dec}
}

func (d *URLDecoder) IgnoreUnknownKeys(i bool) {
	d.dec.IgnoreUnknownKeys(i)
}

// Decode fills dst (a pointer to struct with `schema` tags) from src.
func (d *URLDecoder) Decode(dst any, src url.Values) error {
	err := d.dec.Decode(dst, src)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return err
	}
	decodeErr := &DecodeError{Errors: make(map[string]string, len(multi))}
	for key, fieldErr := range multi {
		var convErr schema.ConversionError
		var unknownErr schema.UnknownKeyError
		switch {
		case errors.As(fieldErr, &convErr):
			decodeErr.Errors[key] = fmt.Sprintf("Invalid value for %s", key)
		case errors.As(fieldErr, &unknownErr):
			decodeErr.Errors[key] = "Unknown parameter"
		default:
			decodeErr.Errors[key] = fieldErr.Error()
		}
	}
	return decodeErr
}
