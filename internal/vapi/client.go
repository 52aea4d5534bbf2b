// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

/*
Package vapi is the client for the remote voice-assistant platform.

Client Features:
  - Bearer API key authentication
  - Explicit per-request timeout (default 10s)
  - Outbound pacing with a token bucket (golang.org/x/time/rate)
  - No retries; failures surface to the caller
  - Circuit breaker wrapper (CircuitBreakerClient) for production use

Endpoints used:
  - GET   /assistant, /assistant/{id}
  - PATCH /assistant/{id}
  - GET   /call, /call/{id}/transcript
  - POST  /analytics
*/
package vapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/callboard/internal/config"
)

// MinMaxDurationSeconds is the lowest call length limit the platform accepts.
const MinMaxDurationSeconds = 10

var (
	// ErrNotFound is matched by errors for 404 answers.
	ErrNotFound = errors.New("vapi: not found")

	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("vapi: circuit breaker open")
)

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// API is the set of platform operations the rest of the service uses.
// Client and CircuitBreakerClient implement it.
type API interface {
	Ping(ctx context.Context) error
	GetAssistant(ctx context.Context, id string) (*Assistant, error)
	UpdateAssistant(ctx context.Context, id string, patch map[string]interface{}) (*Assistant, error)
	ListCalls(ctx context.Context, params ListCallsParams) ([]Call, error)
	GetCallTranscript(ctx context.Context, callID string) (string, error)
	QueryAnalytics(ctx context.Context, query AnalyticsQuery) (json.RawMessage, error)
}

// Client talks to the platform over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.VapiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Ping verifies the API key with a one-item assistant listing.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, "/assistant?limit=1", nil)
	return err
}

// GetAssistant fetches one assistant. A 404 matches ErrNotFound.
func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	body, err := c.do(ctx, "get_assistant", http.MethodGet, "/assistant/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeAssistant(body)
}

// UpdateAssistant applies patch to the remote assistant. The caller's map
// is not modified: "id" is dropped and maxDurationSeconds is raised to the
// platform minimum.
func (c *Client) UpdateAssistant(ctx context.Context, id string, patch map[string]interface{}) (*Assistant, error) {
	body, err := c.do(ctx, "update_assistant", http.MethodPatch, "/assistant/"+url.PathEscape(id), SanitizePatch(patch))
	if err != nil {
		return nil, err
	}
	return decodeAssistant(body)
}

// SanitizePatch returns a copy of patch that the platform will accept.
func SanitizePatch(patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(patch))
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	if v, ok := out["maxDurationSeconds"]; ok {
		if n, ok := toFloat(v); ok && n < MinMaxDurationSeconds {
			out["maxDurationSeconds"] = MinMaxDurationSeconds
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ListCalls lists calls for one assistant, newest first as the platform
// returns them.
func (c *Client) ListCalls(ctx context.Context, params ListCallsParams) ([]Call, error) {
	q := url.Values{}
	if params.AssistantID != "" {
		q.Set("assistantId", params.AssistantID)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if !params.CreatedAtGt.IsZero() {
		q.Set("createdAtGt", params.CreatedAtGt.UTC().Format(time.RFC3339Nano))
	}

	path := "/call"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := c.do(ctx, "list_calls", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Call](body, "calls")
}

// GetCallTranscript returns the transcript text of a call, or "" when the
// platform has none.
func (c *Client) GetCallTranscript(ctx context.Context, callID string) (string, error) {
	body, err := c.do(ctx, "get_transcript", http.MethodGet, "/call/"+url.PathEscape(callID)+"/transcript", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Transcript *string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode transcript: %w", err)
	}
	if resp.Transcript == nil {
		return "", nil
	}
	return *resp.Transcript, nil
}

// QueryAnalytics runs one analytics query and returns the response body
// undecoded; callers pick the shape apart.
func (c *Client) QueryAnalytics(ctx context.Context, query AnalyticsQuery) (json.RawMessage, error) {
	body, err := c.do(ctx, "query_analytics", http.MethodPost, "/analytics", query)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
