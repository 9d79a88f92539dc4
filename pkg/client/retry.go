package client

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_client_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_client_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// Retries is the number of attempts after the first one.
	Retries int

	// Delay is the fixed wait before each retry.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration:
// one retry after 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries: 1,
		Delay:   500 * time.Millisecond,
	}
}

// Retry runs fn and, on failure, retries it up to cfg.Retries times after a
// fixed delay. Every error is retried the same way except caller aborts.
// When the budget is spent the last error is returned unchanged.
//
// If ctx ends during the delay, Retry returns the context error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return value, nil
		}

		if IsCanceled(err) || ctx.Err() != nil {
			return value, err
		}

		class := errorClassOf(err)
		if attempt >= cfg.Retries {
			if cfg.Retries > 0 {
				retryExhaustedTotal.WithLabelValues(string(class)).Inc()
				log.Warn().
					Err(err).
					Str("error_class", string(class)).
					Int("attempts", attempt+1).
					Msg("Retry attempts exhausted")
			}
			return value, err
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		log.Debug().
			Err(err).
			Str("error_class", string(class)).
			Int("attempt", attempt+1).
			Dur("backoff", cfg.Delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func errorClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return classifyTransportError(err)
}
