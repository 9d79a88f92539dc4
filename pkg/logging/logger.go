// Package logging configures zerolog for the course client and proxy.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names used in the "component" field.
const (
	ComponentClient    = "api-client"
	ComponentCache     = "cache"
	ComponentRateLimit = "ratelimit"
	ComponentPager     = "pager"
	ComponentResource  = "resource"
	ComponentBlog      = "blog"
	ComponentCourses   = "courses"
	ComponentProxy     = "proxy"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Service is added to every entry when set.
	Service string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog level. Unknown names
// select info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: cache hits and misses, fetches, pager requests and discarded
// superseded responses, request flow.
//
// Info: lifecycle (startup, shutdown, warm-up), admin mutations, requests
// that succeeded after a retry.
//
// Warn: retries exhausted, store errors (served as a miss), rate limit
// pauses, failed page fetches, invalidation failures.
//
// Error: transport failures, failed warm-up, server errors.
//
// Context Fields:
//   - component: one of the Component constants
//   - endpoint, method, request_id: outbound request
//   - status_code, error_class: failed request
//   - key, ttl, cache_hit: cache operation
//   - query, seq: pager request
