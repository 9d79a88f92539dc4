package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.BackendURL != "http://localhost:5000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.CacheBackend != BackendMemory {
		t.Errorf("CacheBackend = %q, want memory", cfg.CacheBackend)
	}
	if cfg.CacheMaxEntries != 1024 {
		t.Errorf("CacheMaxEntries = %d, want 1024", cfg.CacheMaxEntries)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if !cfg.WarmUp || cfg.LogPretty {
		t.Errorf("WarmUp = %v, LogPretty = %v", cfg.WarmUp, cfg.LogPretty)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"BACKEND_URL":       "https://api.academy.example.ir",
		"PORT":              "9090",
		"CACHE_BACKEND":     "Redis",
		"REDIS_URL":         "redis://:secret@cache:6380/2",
		"CACHE_CODEC":       "msgpack",
		"CACHE_MAX_ENTRIES": "50",
		"RATE_LIMIT":        "12.5",
		"RATE_BURST":        "3",
		"REQUEST_TIMEOUT":   "5s",
		"LOG_LEVEL":         "debug",
		"LOG_PRETTY":        "true",
		"WARM_UP":           "false",
	}))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.CacheBackend != BackendRedis || cfg.CacheCodec != "msgpack" {
		t.Errorf("cache = %s/%s", cfg.CacheBackend, cfg.CacheCodec)
	}
	if cfg.RateLimit != 12.5 || cfg.Burst != 3 {
		t.Errorf("rate = %v/%d", cfg.RateLimit, cfg.Burst)
	}
	if cfg.WarmUp || !cfg.LogPretty {
		t.Errorf("WarmUp = %v, LogPretty = %v", cfg.WarmUp, cfg.LogPretty)
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions failed: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("redis options = %s db %d", opts.Addr, opts.DB)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"backend", map[string]string{"CACHE_BACKEND": "memcached"}, "CACHE_BACKEND"},
		{"codec", map[string]string{"CACHE_CODEC": "xml"}, "CACHE_CODEC"},
		{"max entries", map[string]string{"CACHE_MAX_ENTRIES": "0"}, "CACHE_MAX_ENTRIES"},
		{"max entries nan", map[string]string{"CACHE_MAX_ENTRIES": "many"}, "CACHE_MAX_ENTRIES"},
		{"rate", map[string]string{"RATE_LIMIT": "-1"}, "RATE_LIMIT"},
		{"timeout", map[string]string{"REQUEST_TIMEOUT": "soon"}, "REQUEST_TIMEOUT"},
		{"port", map[string]string{"PORT": "http"}, "PORT"},
		{"pretty", map[string]string{"LOG_PRETTY": "maybe"}, "LOG_PRETTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(envMap(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestRedisOptions_HostPort(t *testing.T) {
	cfg := Config{RedisURL: "localhost:6379"}

	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions failed: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Errorf("Addr = %q", opts.Addr)
	}

	cfg.RedisURL = "redis://host:notaport/x"
	if _, err := cfg.RedisOptions(); err == nil {
		t.Error("expected parse error")
	}
}
