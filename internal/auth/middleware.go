// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/metrics"
)

// Auth modes.
const (
	ModeJWT  = "jwt"
	ModeNone = "none"
)

// TokenCookieName is the cookie read when no Authorization header is sent.
const TokenCookieName = "token"

// DevUser is the caller in AUTH_MODE=none.
var DevUser = User{ID: "00000000-0000-0000-0000-000000000001", Email: "dev@localhost"}

// Middleware authenticates requests.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
	cronSecret string
}

// NewMiddleware creates the authentication middleware for the configured mode.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	m := &Middleware{authMode: cfg.AuthMode, cronSecret: cfg.CronSecret}

	switch cfg.AuthMode {
	case ModeNone:
		logging.Warn().Str("user_id", DevUser.ID).Msg("Authentication disabled, all requests run as the development user")
	case ModeJWT, "":
		jm, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.authMode = ModeJWT
		m.jwtManager = jm
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.AuthMode)
	}
	return m, nil
}

// Authenticate requires a valid session and stores the caller in the
// request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == ModeNone {
			dev := DevUser
			next.ServeHTTP(w, r.WithContext(withUser(r, &dev)))
			return
		}

		token, err := extractToken(r)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("missing_token").Inc()
			writeUnauthorized(w, r)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			writeUnauthorized(w, r)
			return
		}

		user := &User{ID: claims.Subject, Email: claims.Email}
		next.ServeHTTP(w, r.WithContext(withUser(r, user)))
	})
}

// RequireCronSecret guards the scheduled sync endpoint with the shared secret.
func (m *Middleware) RequireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CronAuthorized(r, m.cronSecret) {
			metrics.AuthFailures.WithLabelValues("cron_secret").Inc()
			logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("Rejected cron request")
			writeUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CronAuthorized reports whether r carries "Bearer <secret>". An empty
// secret authorizes every request.
func CronAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte("Bearer "+secret)) == 1
}

func withUser(r *http.Request, user *User) context.Context {
	ctx := ContextWithUser(r.Context(), user)
	return logging.ContextWithUserID(ctx, user.ID)
}

// extractToken reads the bearer token from the Authorization header or the
// token cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", ErrMissingToken
		}
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type unauthorizedBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	var body unauthorizedBody
	body.Error.Code = "UNAUTHORIZED"
	body.Error.Message = "Unauthorized"
	body.Error.RequestID = middleware.GetReqID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode unauthorized response")
	}
}
