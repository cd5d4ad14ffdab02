package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	return lookup(key, fallback, strconv.Atoi)
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	return lookup(key, fallback, strconv.ParseBool)
}

// GetDuration reads an integer count of unit, so SIM_TICK_INTERVAL_MS=2500
// with unit time.Millisecond yields 2.5s. Negative counts fall back.
func GetDuration(key string, fallback int, unit time.Duration) time.Duration {
	n := GetInt(key, fallback)
	if n < 0 {
		slog.Warn("negative duration in environment", "key", key, "value", n)
		n = fallback
	}
	return time.Duration(n) * unit
}

// lookup parses a set, non-blank variable. Parse failures are logged and
// yield the fallback.
func lookup[T any](key string, fallback T, parse func(string) (T, error)) T {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := parse(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("invalid value in environment", "key", key, "error", err)
		return fallback
	}
	return parsed
}
