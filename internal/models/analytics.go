// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// DailyRecord is one day of the daily facet.
type DailyRecord struct {
	Date       string `json:"date"` // YYYY-MM-DD
	Calls      int    `json:"calls"`
	Successful int    `json:"successful"`
	Duration   int    `json:"duration"` // rounded average, seconds
}

// OutcomeDistribution is the fixed four-bucket outcome facet.
type OutcomeDistribution struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	NoAnswer   int `json:"noAnswer"`
	Busy       int `json:"busy"`
}

// Total returns the sum over all four buckets.
func (o OutcomeDistribution) Total() int {
	return o.Successful + o.Failed + o.NoAnswer + o.Busy
}

// HourlyRecord is one hour of the hourly facet.
type HourlyRecord struct {
	Hour  string `json:"hour"` // 12-hour label, e.g. "9AM"
	Calls int    `json:"calls"`
}

// AssistantPerformance is one row of the per-assistant facet.
type AssistantPerformance struct {
	Name        string  `json:"name"`
	Calls       int     `json:"calls"`
	SuccessRate float64 `json:"successRate"` // percent, 2dp
	AvgDuration float64 `json:"avgDuration"` // minutes when computed from raw calls, 2dp
}

// AggregateMetrics is the normalized metrics block shown on the dashboard.
type AggregateMetrics struct {
	TotalCalls  int                 `json:"totalCalls"`
	SuccessRate float64             `json:"successRate"` // percent, 2dp
	AvgDuration int                 `json:"avgDuration"` // seconds
	DailyData   []DailyRecord       `json:"dailyData"`
	Outcomes    OutcomeDistribution `json:"outcomes"`
	HourlyData  []HourlyRecord      `json:"hourlyData"`
}

// RawAnalytics carries the upstream analytics responses as received,
// null for a branch that failed.
type RawAnalytics struct {
	Daily        json.RawMessage `json:"daily"`
	Outcomes     json.RawMessage `json:"outcomes"`
	Hourly       json.RawMessage `json:"hourly"`
	PerAssistant json.RawMessage `json:"perAssistant"`
}

// AnalyticsPayload is the full dashboard analytics response.
type AnalyticsPayload struct {
	Analytics            AggregateMetrics       `json:"analytics"`
	AssistantPerformance []AssistantPerformance `json:"assistantPerformance"`
	TotalAssistants      int                    `json:"totalAssistants"`
	LastUpdated          time.Time              `json:"lastUpdated"`
	Cached               bool                   `json:"cached"`
	VapiAnalytics        *RawAnalytics          `json:"vapiAnalytics,omitempty"`
}
