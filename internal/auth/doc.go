// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

/*
Package auth authenticates dashboard requests.

Sessions are issued by an external auth backend as HS256-signed JWTs. The
token's subject is the user id that owns assistant registrations and call
records. Tokens are read from the Authorization header ("Bearer <token>")
or, failing that, from the "token" cookie.

Authentication Modes (AUTH_MODE):

  - jwt: every /api route except the cron liveness probe requires a valid token
  - none: requests run as a fixed local user (development only)

The cron sync endpoint is protected separately by a shared secret
(CRON_SECRET) compared in constant time. When no secret is configured the
endpoint is open.

Usage:

	mw, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Use(mw.Authenticate)

	user, ok := auth.UserFromContext(r.Context())
*/
package auth
