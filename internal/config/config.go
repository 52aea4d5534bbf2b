// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package config loads Callboard configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Vapi      VapiConfig      `koanf:"vapi"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Sync      SyncConfig      `koanf:"sync"`
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// VapiConfig configures the remote voice-assistant platform client.
type VapiConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond and Burst pace outbound requests. A sync over a
	// busy assistant issues one transcript request per ended call.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	// Driver is "duckdb" (embedded file) or "postgres".
	Driver    string `koanf:"driver"`
	Path      string `koanf:"path"`
	URL       string `koanf:"url"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// AnalyticsConfig configures aggregate computation and its cache.
type AnalyticsConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheBackend is "memory" or "badger".
	CacheBackend string `koanf:"cache_backend"`
	CachePath    string `koanf:"cache_path"`

	FallbackWindow time.Duration `koanf:"fallback_window"`
	HourStart      int           `koanf:"hour_start"`
	HourEnd        int           `koanf:"hour_end"`
	Timezone       string        `koanf:"timezone"`
}

// SyncConfig configures call-history synchronization.
type SyncConfig struct {
	UserLimit       int           `koanf:"user_limit"`
	CronLimit       int           `koanf:"cron_limit"`
	CronLookback    time.Duration `koanf:"cron_lookback"`
	ScheduleEnabled bool          `koanf:"schedule_enabled"`
	Interval        time.Duration `koanf:"interval"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// APIConfig holds list pagination bounds.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and HTTP protection settings.
type SecurityConfig struct {
	// AuthMode is "jwt" (bearer tokens signed by the auth backend) or "none".
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	// AuthURL is the auth backend base URL. When set, token issuers must
	// start with it.
	AuthURL string `koanf:"auth_url"`

	// CronSecret protects the scheduled sync endpoint. Empty leaves it open.
	CronSecret string `koanf:"cron_secret"`

	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
	CORSOrigins       []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Location returns the analytics time zone, UTC when unset or unknown.
func (a *AnalyticsConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
