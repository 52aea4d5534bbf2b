// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/callboard/internal/models"
)

// successReasons are end reasons counted as successful in remote rows.
var successReasons = map[string]bool{
	models.EndedReasonAssistantEndedCall: true,
	models.EndedReasonHookSay:            true,
	models.EndedReasonHookTransfer:       true,
}

// Each normalizer returns the fallback unchanged, and false, when the
// response has no rows.

// NormalizeDaily maps remote rows to daily records sorted by date. Rows
// without a date are dropped.
func NormalizeDaily(resp Response, fallback []models.DailyRecord) ([]models.DailyRecord, bool) {
	if !resp.Usable() {
		return fallback, false
	}

	daily := make([]models.DailyRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		date := dateLabel(row.String(FieldDate))
		if date == "" {
			continue
		}
		daily = append(daily, models.DailyRecord{
			Date:       date,
			Calls:      count(row.Number(FieldCount)),
			Successful: count(row.Number(FieldSuccessful)),
			Duration:   int(math.Round(row.Number(FieldDuration))),
		})
	}
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	return daily, true
}

// dateLabel shortens full timestamps to YYYY-MM-DD and leaves other
// strings alone.
func dateLabel(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return s
}

// count truncates to a non-negative integer.
func count(n float64) int {
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// NormalizeOutcomes sums counts by end reason and buckets them. Reasons
// outside the known buckets, and rows with no reason, count as failed so
// the buckets sum to the total of the input counts.
func NormalizeOutcomes(resp Response, fallback models.OutcomeDistribution) (models.OutcomeDistribution, bool) {
	if !resp.Usable() {
		return fallback, false
	}

	var out models.OutcomeDistribution
	for _, row := range resp.Rows {
		n := count(row.Number(FieldCount))
		switch reason := row.String(FieldReason); {
		case successReasons[reason]:
			out.Successful += n
		case reason == models.EndedReasonNoAnswer:
			out.NoAnswer += n
		case reason == models.EndedReasonBusy:
			out.Busy += n
		default:
			out.Failed += n
		}
	}
	return out, true
}

// NormalizeHourly maps remote rows to 12-hour labels in response order.
// Rows without an hour are dropped.
func NormalizeHourly(resp Response, fallback []models.HourlyRecord) ([]models.HourlyRecord, bool) {
	if !resp.Usable() {
		return fallback, false
	}

	hourly := make([]models.HourlyRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		label, ok := hourValueLabel(row)
		if !ok {
			continue
		}
		hourly = append(hourly, models.HourlyRecord{Hour: label, Calls: count(row.Number(FieldCount))})
	}
	return hourly, true
}

// hourValueLabel formats an hour given as a number, a numeric string, a
// timestamp or an already formatted label.
func hourValueLabel(row Row) (string, bool) {
	v, ok := row.Value(FieldHour)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case float64:
		return numericHourLabel(t)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return numericHourLabel(n)
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return HourLabel(ts.UTC().Hour()), true
		}
		return s, s != ""
	default:
		return "", false
	}
}

func numericHourLabel(n float64) (string, bool) {
	h := int(n)
	if float64(h) != n || h < 0 || h > 23 {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return HourLabel(h), true
}

type assistantTotals struct {
	calls         int
	successful    int
	durationSum   float64
	durationCount int
}

// NormalizePerAssistant aggregates remote rows by assistant id and reports
// exactly the given registrations, zero-filled when absent from the rows.
// Remote ids that are not registered are ignored.
func NormalizePerAssistant(resp Response, assistants []models.Assistant, fallback []models.AssistantPerformance) ([]models.AssistantPerformance, bool) {
	if !resp.Usable() {
		return fallback, false
	}

	totals := make(map[string]*assistantTotals)
	for _, row := range resp.Rows {
		id := row.String(FieldAssistant)
		if id == "" {
			continue
		}
		rec := totals[id]
		if rec == nil {
			rec = &assistantTotals{}
			totals[id] = rec
		}
		n := count(row.Number(FieldCount))
		rec.calls += n
		if successReasons[row.String(FieldReason)] {
			rec.successful += n
		}
		if d := row.Number(FieldDuration); d != 0 {
			rec.durationSum += d
			rec.durationCount++
		}
	}

	out := make([]models.AssistantPerformance, 0, len(assistants))
	for _, a := range assistants {
		rec := totals[a.VapiAssistantID]
		if rec == nil {
			rec = &assistantTotals{}
		}
		rate := 0.0
		if rec.calls > 0 {
			rate = float64(rec.successful) / float64(rec.calls) * 100
		}
		avg := 0.0
		if rec.durationCount > 0 {
			avg = rec.durationSum / float64(rec.durationCount)
		}
		out = append(out, models.AssistantPerformance{
			Name:        a.Name,
			Calls:       rec.calls,
			SuccessRate: Round2(rate),
			AvgDuration: Round2(avg),
		})
	}
	return out, true
}
