// Package ratelimit throttles outbound requests to the course platform API.
// It combines a token bucket with a pause window taken from Retry-After
// headers on 429 and 503 responses.
package ratelimit

import (
	"time"
)

// MaxPause caps how long a single Retry-After header can pause requests.
const MaxPause = 60 * time.Second

// State is a snapshot of the limiter.
type State struct {
	// Limit is the sustained request rate (requests per second). 0 means unlimited.
	Limit float64 `json:"limit"`

	// Burst is the token bucket size.
	Burst int `json:"burst"`

	// PausedUntil is when requests may resume after a Retry-After response.
	PausedUntil time.Time `json:"paused_until"`

	// LastUpdate is when the pause window was last changed.
	LastUpdate time.Time `json:"last_update"`
}

// IsPaused returns true if requests are held back at the given instant.
func (s State) IsPaused(now time.Time) bool {
	return now.Before(s.PausedUntil)
}

// TimeUntilResume returns the wait left at the given instant.
// Returns 0 if requests are not paused.
func (s State) TimeUntilResume(now time.Time) time.Duration {
	d := s.PausedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
