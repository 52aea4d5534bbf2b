// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/callboard/internal/models"
	"github.com/tomtom215/callboard/internal/vapi"
)

// Window bounds the raw calls used for fallback metrics.
type Window struct {
	Now       time.Time
	Span      time.Duration
	Location  *time.Location
	HourStart int
	HourEnd   int
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Since returns the earliest creation time inside the window.
func (w Window) Since() time.Time {
	return w.Now.Add(-w.Span)
}

// FilterCalls keeps calls created inside the window whose assistant is in
// ids. A nil ids keeps every assistant.
func FilterCalls(calls []vapi.Call, w Window, ids map[string]bool) []vapi.Call {
	since := w.Since()
	out := make([]vapi.Call, 0, len(calls))
	for _, c := range calls {
		if c.CreatedAt.Before(since) {
			continue
		}
		if ids != nil && !ids[c.AssistantID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// HourLabel formats a 0-23 hour as 12AM, 1AM ... 12PM ... 11PM.
func HourLabel(h int) string {
	switch {
	case h == 0:
		return "12AM"
	case h < 12:
		return fmt.Sprintf("%dAM", h)
	case h == 12:
		return "12PM"
	default:
		return fmt.Sprintf("%dPM", h-12)
	}
}

func isSuccess(c *vapi.Call) bool {
	return models.IsSuccessfulCall(c.Status, c.EndedReason)
}

// durationStats sums durations of calls that report a positive one.
func durationStats(calls []vapi.Call) (sum float64, n int) {
	for i := range calls {
		if d := calls[i].DurationSeconds(); d != nil && *d > 0 {
			sum += *d
			n++
		}
	}
	return sum, n
}

// ComputeFallback derives every facet from raw calls, which must already
// be filtered to the window. Durations are seconds.
func ComputeFallback(calls []vapi.Call, w Window) models.AggregateMetrics {
	loc := w.loc()

	byDate := make(map[string][]vapi.Call)
	successful := 0
	for i := range calls {
		date := calls[i].CreatedAt.In(loc).Format("2006-01-02")
		byDate[date] = append(byDate[date], calls[i])
		if isSuccess(&calls[i]) {
			successful++
		}
	}

	daily := make([]models.DailyRecord, 0, len(byDate))
	for date, dayCalls := range byDate {
		daySuccessful := 0
		for i := range dayCalls {
			if isSuccess(&dayCalls[i]) {
				daySuccessful++
			}
		}
		sum, n := durationStats(dayCalls)
		avg := 0.0
		if n > 0 {
			avg = sum / float64(n)
		}
		daily = append(daily, models.DailyRecord{
			Date:       date,
			Calls:      len(dayCalls),
			Successful: daySuccessful,
			Duration:   int(math.Round(avg)),
		})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	successRate := 0.0
	if len(calls) > 0 {
		successRate = float64(successful) / float64(len(calls)) * 100
	}
	sum, n := durationStats(calls)
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}

	return models.AggregateMetrics{
		TotalCalls:  len(calls),
		SuccessRate: Round2(successRate),
		AvgDuration: int(math.Round(avg)),
		DailyData:   daily,
		Outcomes:    fallbackOutcomes(calls),
		HourlyData:  fallbackHourly(calls, w),
	}
}

// fallbackOutcomes buckets every call so the four counts sum to len(calls).
func fallbackOutcomes(calls []vapi.Call) models.OutcomeDistribution {
	var out models.OutcomeDistribution
	for i := range calls {
		c := &calls[i]
		ended := c.Status == models.CallStatusEnded
		switch {
		case isSuccess(c):
			out.Successful++
		case ended && c.EndedReason == models.EndedReasonNoAnswer:
			out.NoAnswer++
		case ended && c.EndedReason == models.EndedReasonBusy:
			out.Busy++
		default:
			out.Failed++
		}
	}
	return out
}

func fallbackHourly(calls []vapi.Call, w Window) []models.HourlyRecord {
	loc := w.loc()
	counts := make(map[int]int)
	for i := range calls {
		counts[calls[i].CreatedAt.In(loc).Hour()]++
	}

	hourly := make([]models.HourlyRecord, 0, w.HourEnd-w.HourStart+1)
	for h := w.HourStart; h <= w.HourEnd; h++ {
		hourly = append(hourly, models.HourlyRecord{Hour: HourLabel(h), Calls: counts[h]})
	}
	return hourly
}

// FallbackPerAssistant reports every assistant in assistants from raw
// calls. Average duration is minutes.
func FallbackPerAssistant(calls []vapi.Call, assistants []models.Assistant) []models.AssistantPerformance {
	byAssistant := make(map[string][]vapi.Call)
	for i := range calls {
		byAssistant[calls[i].AssistantID] = append(byAssistant[calls[i].AssistantID], calls[i])
	}

	out := make([]models.AssistantPerformance, 0, len(assistants))
	for _, a := range assistants {
		own := byAssistant[a.VapiAssistantID]
		successful := 0
		for i := range own {
			if isSuccess(&own[i]) {
				successful++
			}
		}
		rate := 0.0
		if len(own) > 0 {
			rate = float64(successful) / float64(len(own)) * 100
		}
		sum, n := durationStats(own)
		avgMinutes := 0.0
		if n > 0 {
			avgMinutes = sum / float64(n) / 60
		}
		out = append(out, models.AssistantPerformance{
			Name:        a.Name,
			Calls:       len(own),
			SuccessRate: Round2(rate),
			AvgDuration: Round2(avgMinutes),
		})
	}
	return out
}

// Summarize recomputes the top-level totals from the daily facet so the
// summary always agrees with the per-day breakdown.
func Summarize(daily []models.DailyRecord) (totalCalls int, successRate float64, avgDuration int) {
	successful := 0
	durationSum := 0
	for _, d := range daily {
		totalCalls += d.Calls
		successful += d.Successful
		durationSum += d.Duration
	}
	if totalCalls > 0 {
		successRate = Round2(float64(successful) / float64(totalCalls) * 100)
	}
	if len(daily) > 0 {
		avgDuration = int(math.Round(float64(durationSum) / float64(len(daily))))
	}
	return totalCalls, successRate, avgDuration
}
