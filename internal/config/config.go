// Package config provides centralized configuration management.
// Every tunable of the server and the terminal frontend starts here.
//
// Defaults live in the Default* functions; *FromEnv functions apply
// environment overrides on top of them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"synergy/internal/game"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	DebugAddr   string   // pprof + /metrics, localhost only; empty disables
	DebugUser   string   // Optional basic auth for the debug server
	DebugPass   string
	CORSOrigins []string // nil means the built-in list
	LogRequests bool
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		DebugAddr:   "127.0.0.1:6060",
		LogRequests: true,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v, ok := os.LookupEnv("DEBUG_ADDR"); ok {
		cfg.DebugAddr = v
	}
	cfg.DebugUser = os.Getenv("DEBUG_AUTH_USER")
	cfg.DebugPass = os.Getenv("DEBUG_AUTH_PASS")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if os.Getenv("LOG_REQUESTS") == "false" {
		cfg.LogRequests = false
	}

	return cfg
}

// =============================================================================
// SESSION LIMITS
// =============================================================================

// SessionLimits controls DoS protection for hosted games.
type SessionLimits struct {
	MaxSessions  int           // Hard cap on concurrent sessions
	IdleTimeout  time.Duration // Sessions without input for this long are reaped
	ReapInterval time.Duration // How often the reaper runs
}

// DefaultLimits returns the default session limits.
func DefaultLimits() SessionLimits {
	return SessionLimits{
		MaxSessions:  500,
		IdleTimeout:  10 * time.Minute,
		ReapInterval: time.Minute,
	}
}

// LimitsFromEnv returns session limits with environment variable overrides.
func LimitsFromEnv() SessionLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_SESSIONS", 0); n > 0 {
		cfg.MaxSessions = n
	}
	if d := getEnvDuration("SESSION_IDLE_TIMEOUT", 0); d > 0 {
		cfg.IdleTimeout = d
	}
	if d := getEnvDuration("SESSION_REAP_INTERVAL", 0); d > 0 {
		cfg.ReapInterval = d
	}

	return cfg
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimitConfig holds per-IP request limits for the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxWSPerIP        int // Concurrent WebSocket connections per IP
}

// DefaultRateLimit returns production-safe defaults.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20, // Enough for a player mashing arrow keys
		Burst:             40,
		MaxWSPerIP:        5,
	}
}

// RateLimitFromEnv returns rate limits with environment variable overrides.
func RateLimitFromEnv() RateLimitConfig {
	cfg := DefaultRateLimit()

	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	if n := getEnvInt("MAX_WS_PER_IP", 0); n > 0 {
		cfg.MaxWSPerIP = n
	}

	return cfg
}

// =============================================================================
// EVENT LOG & RENDERING
// =============================================================================

// EventLogConfig controls the audit log.
type EventLogConfig struct {
	Path string // Empty keeps events in memory only
}

// EventLogFromEnv reads EVENT_LOG_PATH.
func EventLogFromEnv() EventLogConfig {
	return EventLogConfig{Path: os.Getenv("EVENT_LOG_PATH")}
}

// RenderConfig controls PNG frames.
type RenderConfig struct {
	CellSize int // Pixels per grid unit
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{CellSize: 20}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()
	if c := getEnvInt("FRAME_CELL_SIZE", 0); c > 0 {
		cfg.CellSize = c
	}
	return cfg
}

// =============================================================================
// GAME TUNING
// =============================================================================

// LoadTuning reads a YAML tuning file over the defaults.
// Keys absent from the file keep their default value.
func LoadTuning(path string) (game.Tuning, error) {
	tuning := game.DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if err := tuning.Validate(); err != nil {
		return tuning, fmt.Errorf("invalid tuning in %s: %w", path, err)
	}

	return tuning, nil
}

// TuningFromEnv loads TUNING_FILE when set, defaults otherwise.
func TuningFromEnv() (game.Tuning, error) {
	path := os.Getenv("TUNING_FILE")
	if path == "" {
		return game.DefaultTuning(), nil
	}
	return LoadTuning(path)
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server    ServerConfig
	Limits    SessionLimits
	RateLimit RateLimitConfig
	EventLog  EventLogConfig
	Render    RenderConfig
	Tuning    game.Tuning
}

// Load returns the complete configuration with environment overrides.
func Load() (AppConfig, error) {
	tuning, err := TuningFromEnv()
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		Server:    ServerFromEnv(),
		Limits:    LimitsFromEnv(),
		RateLimit: RateLimitFromEnv(),
		EventLog:  EventLogFromEnv(),
		Render:    RenderFromEnv(),
		Tuning:    tuning,
	}
	return cfg, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
