// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file. The first
// file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/callboard/config.yaml",
	"/etc/callboard/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the location of the optional .env file.
const DotEnvPathEnvVar = "DOTENV_PATH"

func defaultConfig() *Config {
	return &Config{
		Vapi: VapiConfig{
			BaseURL:           "https://api.vapi.ai",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "/data/callboard.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Analytics: AnalyticsConfig{
			CacheTTL:       60 * time.Second,
			CacheBackend:   "memory",
			CachePath:      "/data/analytics-cache",
			FallbackWindow: 7 * 24 * time.Hour,
			HourStart:      9,
			HourEnd:        17,
			Timezone:       "UTC",
		},
		Sync: SyncConfig{
			UserLimit:       100,
			CronLimit:       500,
			CronLookback:    7 * 24 * time.Hour,
			ScheduleEnabled: false,
			Interval:        24 * time.Hour,
		},
		Server: ServerConfig{
			Port:        3857,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Security: SecurityConfig{
			AuthMode:    "jwt",
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// sliceConfigPaths are config paths whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// LoadWithKoanf layers struct defaults, an optional YAML file and the
// process environment (after an optional .env file), then validates.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Remote platform
	"vapi_api_key":             "vapi.api_key",
	"vapi_base_url":            "vapi.base_url",
	"vapi_timeout":             "vapi.timeout",
	"vapi_requests_per_second": "vapi.requests_per_second",
	"vapi_burst":               "vapi.burst",

	// Store
	"database_driver":     "database.driver",
	"database_path":       "database.path",
	"duckdb_path":         "database.path",
	"database_url":        "database.url",
	"database_max_memory": "database.max_memory",
	"database_threads":    "database.threads",

	// Analytics
	"analytics_cache_ttl":       "analytics.cache_ttl",
	"analytics_cache_backend":   "analytics.cache_backend",
	"analytics_cache_path":      "analytics.cache_path",
	"analytics_fallback_window": "analytics.fallback_window",
	"analytics_hour_start":      "analytics.hour_start",
	"analytics_hour_end":        "analytics.hour_end",
	"analytics_timezone":        "analytics.timezone",

	// Sync
	"sync_user_limit":       "sync.user_limit",
	"sync_cron_limit":       "sync.cron_limit",
	"sync_cron_lookback":    "sync.cron_lookback",
	"sync_schedule_enabled": "sync.schedule_enabled",
	"sync_interval":         "sync.interval",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"supabase_jwt_secret": "security.jwt_secret",
	"supabase_url":        "security.auth_url",
	"cron_secret":         "security.cron_secret",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"rate_limit_disabled": "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
