// Package config loads the course proxy configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/course-client/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendRistretto = "ristretto"
)

// Config is the proxy configuration.
type Config struct {
	BackendURL      string        // BACKEND_URL
	Port            string        // PORT
	CacheBackend    string        // CACHE_BACKEND: memory, redis or ristretto
	RedisURL        string        // REDIS_URL: host:port or redis:// URL
	CacheMaxEntries int           // CACHE_MAX_ENTRIES (memory backend)
	CacheCodec      string        // CACHE_CODEC: json or msgpack (redis backend)
	RateLimit       float64       // RATE_LIMIT: backend requests per second, 0 = unlimited
	Burst           int           // RATE_BURST
	Timeout         time.Duration // REQUEST_TIMEOUT
	LogLevel        string        // LOG_LEVEL
	LogPretty       bool          // LOG_PRETTY
	UserAgent       string        // USER_AGENT
	WarmUp          bool          // WARM_UP: prefetch taxonomy and first pages at startup
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv and validates it.
func LoadFrom(getenv func(string) string) (Config, error) {
	get := func(key, defaultValue string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return defaultValue
	}

	cfg := Config{
		BackendURL:   get("BACKEND_URL", "http://localhost:5000"),
		Port:         get("PORT", "8080"),
		CacheBackend: strings.ToLower(get("CACHE_BACKEND", BackendMemory)),
		RedisURL:     get("REDIS_URL", "localhost:6379"),
		CacheCodec:   strings.ToLower(get("CACHE_CODEC", "json")),
		LogLevel:     get("LOG_LEVEL", "info"),
		UserAgent:    get("USER_AGENT", "course-proxy/0.1.0"),
	}

	var err error
	if cfg.CacheMaxEntries, err = strconv.Atoi(get("CACHE_MAX_ENTRIES", strconv.Itoa(cache.DefaultMaxEntries))); err != nil {
		return Config{}, fmt.Errorf("CACHE_MAX_ENTRIES: %w", err)
	}
	if cfg.RateLimit, err = strconv.ParseFloat(get("RATE_LIMIT", "0"), 64); err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	if cfg.Burst, err = strconv.Atoi(get("RATE_BURST", "10")); err != nil {
		return Config{}, fmt.Errorf("RATE_BURST: %w", err)
	}
	if cfg.Timeout, err = time.ParseDuration(get("REQUEST_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	if cfg.LogPretty, err = strconv.ParseBool(get("LOG_PRETTY", "false")); err != nil {
		return Config{}, fmt.Errorf("LOG_PRETTY: %w", err)
	}
	if cfg.WarmUp, err = strconv.ParseBool(get("WARM_UP", "true")); err != nil {
		return Config{}, fmt.Errorf("WARM_UP: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.CacheBackend {
	case BackendMemory, BackendRedis, BackendRistretto:
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, redis or ristretto (got %q)", c.CacheBackend)
	}
	if _, err := cache.CodecByName(c.CacheCodec); err != nil {
		return fmt.Errorf("CACHE_CODEC: %w", err)
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be >= 1 (got %d)", c.CacheMaxEntries)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must be >= 0 (got %v)", c.RateLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %v)", c.Timeout)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric (got %q)", c.Port)
	}
	return nil
}

// RedisOptions returns client options for RedisURL, which is either a
// redis:// URL or a bare host:port.
func (c Config) RedisOptions() (*redis.Options, error) {
	if strings.HasPrefix(c.RedisURL, "redis://") || strings.HasPrefix(c.RedisURL, "rediss://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
