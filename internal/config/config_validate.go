// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateVapi(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateVapi() error {
	if c.Vapi.APIKey == "" {
		return fmt.Errorf("VAPI_API_KEY environment variable is required")
	}
	if err := validateHTTPURL(c.Vapi.BaseURL, "VAPI_BASE_URL"); err != nil {
		return fmt.Errorf("VAPI_BASE_URL is invalid: %w", err)
	}
	if c.Vapi.Timeout <= 0 {
		return fmt.Errorf("VAPI_TIMEOUT must be positive")
	}
	if c.Vapi.RequestsPerSecond <= 0 {
		return fmt.Errorf("VAPI_REQUESTS_PER_SECOND must be positive")
	}
	if c.Vapi.Burst < 1 {
		return fmt.Errorf("VAPI_BURST must be at least 1")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required when DATABASE_DRIVER=duckdb")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of: duckdb, postgres")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DATABASE_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if c.Analytics.CacheTTL <= 0 {
		return fmt.Errorf("ANALYTICS_CACHE_TTL must be positive")
	}
	switch c.Analytics.CacheBackend {
	case "memory":
	case "badger":
		if c.Analytics.CachePath == "" {
			return fmt.Errorf("ANALYTICS_CACHE_PATH is required when ANALYTICS_CACHE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("ANALYTICS_CACHE_BACKEND must be one of: memory, badger")
	}
	if c.Analytics.FallbackWindow <= 0 {
		return fmt.Errorf("ANALYTICS_FALLBACK_WINDOW must be positive")
	}
	if c.Analytics.HourStart < 0 || c.Analytics.HourEnd > 23 || c.Analytics.HourStart > c.Analytics.HourEnd {
		return fmt.Errorf("ANALYTICS_HOUR_START and ANALYTICS_HOUR_END must satisfy 0 <= start <= end <= 23")
	}
	if c.Analytics.Timezone != "" {
		if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
			return fmt.Errorf("ANALYTICS_TIMEZONE is invalid: %w", err)
		}
	}
	return nil
}

const maxSyncLimit = 1000

func (c *Config) validateSync() error {
	if c.Sync.UserLimit < 1 || c.Sync.UserLimit > maxSyncLimit {
		return fmt.Errorf("SYNC_USER_LIMIT must be between 1 and %d", maxSyncLimit)
	}
	if c.Sync.CronLimit < 1 || c.Sync.CronLimit > maxSyncLimit {
		return fmt.Errorf("SYNC_CRON_LIMIT must be between 1 and %d", maxSyncLimit)
	}
	if c.Sync.CronLookback <= 0 {
		return fmt.Errorf("SYNC_CRON_LOOKBACK must be positive")
	}
	if c.Sync.ScheduleEnabled && c.Sync.Interval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m when SYNC_SCHEDULE_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be at least 1")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE")
	}
	return nil
}

var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	if c.Security.AuthMode == "jwt" {
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	}
	if c.Security.AuthURL != "" {
		if err := validateHTTPURL(c.Security.AuthURL, "SUPABASE_URL"); err != nil {
			return fmt.Errorf("SUPABASE_URL is invalid: %w", err)
		}
	}
	if c.hasWildcardCORS() && c.Security.AuthMode != "none" && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled")
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET (or JWT_SECRET) is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("SUPABASE_JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS policy combined with authentication.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// IsProduction reports whether ENVIRONMENT names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
