// Package cache stores byte values under string keys with an expiry.
package cache

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
)

// Cache is implemented by the in-memory and the Redis backends. A missing or
// expired key is reported with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

var ErrEmptyKey = errors.New("cache: empty key")

func GetJSON[T any](ctx context.Context, c Cache, key string) (value T, ok bool, err error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, err
	}
	return value, true, nil
}

func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}
