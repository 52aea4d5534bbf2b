// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

/*
Package api serves the Callboard HTTP API on a chi router.

Routes:

	GET    /health                    store ping, breaker state, last scheduled sync
	GET    /metrics                   prometheus exposition
	GET    /api/analytics             recent-window metrics from raw calls
	POST   /api/analytics             cached four-facet analytics for a date range
	GET    /api/assistants            registrations with remote details
	POST   /api/assistants            register a remote assistant
	GET    /api/assistants/{id}       remote configuration
	PATCH  /api/assistants/{id}       edit remotely, then refresh the local copy
	DELETE /api/assistants/{id}       remove the caller's registration
	GET    /api/call-history          stored calls with stats and paging
	POST   /api/call-history          sync the caller's call history
	GET    /api/cron/call-history     scheduler liveness
	POST   /api/cron/call-history     sync every user's recent calls (cron secret)

Every response uses the same envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."}}

Global middleware: request id with logging context, real IP, request
logging, panic recovery and CORS. /api routes add security headers and
prometheus metrics, and each route group has its own httprate budget.
*/
package api
