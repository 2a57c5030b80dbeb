// Package config loads client configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for the client. Every field maps to an
// environment variable; sensible defaults are applied so the client can run
// against a local gateway with no configuration at all.
type Config struct {
	APIBaseURL      string        // base URL of the REST gateway, e.g. http://localhost:8080
	WSBaseURL       string        // base URL of the websocket gateway, e.g. ws://localhost:8080
	HTTPTimeout     time.Duration // per-request timeout for REST calls
	ReconnectDelay  time.Duration // fixed delay between websocket reconnect attempts
	HeartbeatPeriod time.Duration // websocket ping interval
	PollInterval    time.Duration // booking status poll cadence while a hold is PENDING
	HandoffTTL      time.Duration // lifetime of handoff artifacts (admission token, booking snapshot)
	RedisAddr       string        // optional host:port of a Redis-backed handoff store; empty selects in-memory
	RedisPassword   string        // optional Redis password
	RedisDB         int           // Redis database number
}

// Load reads configuration from the environment and returns a Config.
// All variables are optional; missing values fall back to defaults that
// match the gateway's development setup.
func Load() Config {
	return Config{
		APIBaseURL:      getenv("SPORTSTIX_API_URL", "http://localhost:8080"),
		WSBaseURL:       getenv("SPORTSTIX_WS_URL", "ws://localhost:8080"),
		HTTPTimeout:     parseDur(getenv("HTTP_TIMEOUT", "10s")),
		ReconnectDelay:  parseDur(getenv("WS_RECONNECT_DELAY", "3s")),
		HeartbeatPeriod: parseDur(getenv("WS_HEARTBEAT", "10s")),
		PollInterval:    parseDur(getenv("BOOKING_POLL_INTERVAL", "5s")),
		HandoffTTL:      parseDur(getenv("HANDOFF_TTL", "10m")),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         atoi(getenv("REDIS_DB", "0")),
	}
}

// getenv returns the value of key or def when the variable is unset or empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

// parseDur parses a Go duration string, falling back to 10 seconds when the
// value cannot be parsed. Callers pass defaults through getenv so a bad
// override degrades to something workable instead of crashing startup.
func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
