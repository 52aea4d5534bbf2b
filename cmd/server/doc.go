// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

/*
Command server runs the Callboard API: a dashboard backend that registers
voice assistants hosted on the Vapi platform, mirrors their call history
into a local store and serves cached analytics over it.

# Startup

 1. Configuration: koanf v2 with defaults, optional config.yaml, .env and
    environment variables (highest priority).
 2. Store: embedded DuckDB file or PostgreSQL (DATABASE_DRIVER).
 3. Analytics cache: in-memory or badger (ANALYTICS_CACHE_BACKEND).
 4. Platform client: HTTP client behind a rate limiter and circuit breaker.
 5. Authentication: HS256 bearer tokens from the auth backend, or AUTH_MODE=none.
 6. Supervisor tree: scheduled sync layer and HTTP server layer.

# Configuration

Required:

	VAPI_API_KEY     platform private key
	JWT_SECRET       auth backend signing secret (AUTH_MODE=jwt)

Common:

	DATABASE_DRIVER          duckdb | postgres (default duckdb)
	DUCKDB_PATH              DuckDB file (default /data/callboard.duckdb)
	DATABASE_URL             PostgreSQL DSN
	SUPABASE_URL             auth backend URL; tokens must carry its issuer
	CRON_SECRET              bearer secret for POST /api/cron/call-history
	ANALYTICS_CACHE_TTL      analytics cache lifetime (default 60s)
	ANALYTICS_TIMEZONE       timezone for fallback day and hour buckets
	SYNC_SCHEDULE_ENABLED    run the all-users sync in-process
	SYNC_INTERVAL            schedule interval (default 24h)
	HTTP_PORT                listen port (default 3857)
	LOG_LEVEL, LOG_FORMAT    zerolog level and json|console output

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for up
to 10 seconds and an in-flight scheduled sync is allowed to finish.
*/
package main
