package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" || cfg.Pretty || cfg.Output == nil {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Msg("fetching page")
			logger.Info().Msg("warm-up finished")
			logger.Warn().Msg("retry attempts exhausted")
			logger.Error().Msg("transport failure")

			entries := decodeLines(t, buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %s", len(entries), len(tt.want), buf.String())
			}
			for i, entry := range entries {
				if entry["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, entry["level"], tt.want[i])
				}
				if _, ok := entry["time"]; !ok {
					t.Errorf("entry %d has no timestamp", i)
				}
			}
		})
	}
}

func TestNewLogger_ComponentAndService(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "info", Service: "course-proxy", Output: buf})

	for _, component := range []string{ComponentCache, ComponentPager, ComponentBlog} {
		logger := NewLogger(component)
		logger.Info().Str("key", "cc:blog.0:api/blog/tags").Msg("Cache hit")
	}

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"cache", "pager", "blog"} {
		if entries[i]["component"] != want {
			t.Errorf("entry %d component = %v, want %s", i, entries[i]["component"], want)
		}
		if entries[i]["service"] != "course-proxy" {
			t.Errorf("entry %d service = %v", i, entries[i]["service"])
		}
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "info", Pretty: true, Output: buf})

	logger.Info().Str("key", "cc:blog.0:api/blog/tags").Msg("Cache hit")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("pretty output should not be JSON, got %q", output)
	}
	if !strings.Contains(output, "Cache hit") {
		t.Errorf("message missing from %q", output)
	}
}
