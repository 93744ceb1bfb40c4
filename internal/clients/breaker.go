package clients

import (
	"errors"
	"log/slog"
	"time"

	"movieweb/proj/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while a provider's circuit is open.
var ErrUnavailable = errors.New("provider temporarily unavailable")

// NewBreaker opens after at least 10 requests in a minute with a failure
// ratio of 60% or more and probes the provider again after timeout.
// Errors matched by expected do not count as failures.
func NewBreaker[T any](log *slog.Logger, name string, timeout time.Duration, expected ...error) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, e := range expected {
				if errors.Is(err, e) {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerStateChanged(name, from, to)
		},
	})
}

// BreakerError maps gobreaker rejections onto ErrUnavailable.
func BreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
