package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for outbound throttling.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_rate_limit_waits_total",
		Help: "Total number of requests delayed by the token bucket or a pause window",
	})

	rateLimitPausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_rate_limit_pauses_total",
		Help: "Total number of pause windows opened by Retry-After responses",
	})
)

// Limiter gates outbound requests.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// NewLimiter creates a limiter allowing rps requests per second with the
// given burst. A non-positive rps disables the token bucket.
func NewLimiter(rps float64, burst int, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	} else {
		rps = 0
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		now:     time.Now,
		state: State{
			Limit: rps,
			Burst: burst,
		},
	}
}

// State returns a snapshot of the limiter state.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Wait blocks until a request may be sent: first until any pause window
// ends, then until a token is available. It returns early with the context
// error when ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if pause := l.State().TimeUntilResume(l.now()); pause > 0 {
		rateLimitWaitsTotal.Inc()
		l.logger.Warn().Dur("wait_duration", pause).Msg("Requests paused - waiting for Retry-After window")

		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if l.limiter.Tokens() < 1 && l.limiter.Limit() != rate.Inf {
		rateLimitWaitsTotal.Inc()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// UpdateFromHeaders opens a pause window when a 429 or 503 response carries
// a Retry-After header (delay seconds or HTTP date). Other responses are
// ignored. The window never shrinks and is capped at MaxPause.
func (l *Limiter) UpdateFromHeaders(statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests && statusCode != http.StatusServiceUnavailable {
		return nil
	}

	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return nil
	}

	now := l.now()
	delay, err := parseRetryAfter(retryAfter, now)
	if err != nil {
		return err
	}
	if delay > MaxPause {
		delay = MaxPause
	}

	until := now.Add(delay)

	l.mu.Lock()
	if until.After(l.state.PausedUntil) {
		l.state.PausedUntil = until
		l.state.LastUpdate = now
	}
	l.mu.Unlock()

	rateLimitPausesTotal.Inc()
	l.logger.Warn().
		Int("status_code", statusCode).
		Time("paused_until", until).
		Msg("Backend asked to slow down - pausing requests")

	return nil
}

func parseRetryAfter(value string, now time.Time) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("parse Retry-After header: negative delay %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, fmt.Errorf("parse Retry-After header: %w", err)
	}

	delay := at.Sub(now)
	if delay < 0 {
		return 0, nil
	}
	return delay, nil
}
