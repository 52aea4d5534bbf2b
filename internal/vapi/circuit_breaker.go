// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package vapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/metrics"
)

const breakerName = "vapi-api"

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed through while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open period before probing again
	MinRequests  uint32        // requests needed before the ratio is judged
	FailureRatio float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10
// requests and probes again after 2 minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// CircuitBreakerClient wraps any API with a circuit breaker. 4xx answers
// count as successes since they do not indicate an unhealthy platform.
type CircuitBreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient builds an HTTP client from cfg and wraps it.
func NewCircuitBreakerClient(cfg *config.VapiConfig) *CircuitBreakerClient {
	return WrapWithBreaker(NewClient(cfg), DefaultBreakerSettings())
}

// WrapWithBreaker wraps client with a breaker using settings.
func WrapWithBreaker(client API, settings BreakerSettings) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= settings.FailureRatio
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: breakerName}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping checks connectivity with breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// GetAssistant fetches one assistant with breaker protection.
func (cbc *CircuitBreakerClient) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	return castResult[*Assistant](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetAssistant(ctx, id)
	}))
}

// UpdateAssistant edits an assistant with breaker protection.
func (cbc *CircuitBreakerClient) UpdateAssistant(ctx context.Context, id string, patch map[string]interface{}) (*Assistant, error) {
	return castResult[*Assistant](cbc.execute(func() (interface{}, error) {
		return cbc.client.UpdateAssistant(ctx, id, patch)
	}))
}

// ListCalls lists calls with breaker protection.
func (cbc *CircuitBreakerClient) ListCalls(ctx context.Context, params ListCallsParams) ([]Call, error) {
	return castResult[[]Call](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListCalls(ctx, params)
	}))
}

// GetCallTranscript fetches a transcript with breaker protection.
func (cbc *CircuitBreakerClient) GetCallTranscript(ctx context.Context, callID string) (string, error) {
	return castResult[string](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetCallTranscript(ctx, callID)
	}))
}

// QueryAnalytics runs an analytics query with breaker protection.
func (cbc *CircuitBreakerClient) QueryAnalytics(ctx context.Context, query AnalyticsQuery) (json.RawMessage, error) {
	return castResult[json.RawMessage](cbc.execute(func() (interface{}, error) {
		return cbc.client.QueryAnalytics(ctx, query)
	}))
}
