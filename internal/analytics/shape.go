// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Shape identifies which response layout an analytics query returned.
type Shape int

const (
	// ShapeUnknown covers null, failed queries and anything unrecognised.
	ShapeUnknown Shape = iota
	// ShapeRows is {"rows": [...]}.
	ShapeRows
	// ShapeData is {"data": [...]}.
	ShapeData
	// ShapeArray is a top-level array of rows.
	ShapeArray
	// ShapeResultSets is [{"name": ..., "result": [...]}, ...].
	ShapeResultSets
)

func (s Shape) String() string {
	switch s {
	case ShapeRows:
		return "rows"
	case ShapeData:
		return "data"
	case ShapeArray:
		return "array"
	case ShapeResultSets:
		return "result_sets"
	default:
		return "unknown"
	}
}

// Row is one decoded analytics row.
type Row map[string]interface{}

// Response is a decoded analytics response.
type Response struct {
	Shape Shape
	Rows  []Row
}

// Usable reports whether the response carries at least one row.
func (r Response) Usable() bool {
	return r.Shape != ShapeUnknown && len(r.Rows) > 0
}

// Decode classifies raw into one of the known shapes. It never fails; bad
// input is ShapeUnknown.
func Decode(raw json.RawMessage) Response {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Response{Shape: ShapeUnknown}
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Response{Shape: ShapeUnknown}
	}

	switch doc := v.(type) {
	case map[string]interface{}:
		if rows, ok := doc["rows"].([]interface{}); ok {
			return Response{Shape: ShapeRows, Rows: toRows(rows)}
		}
		if rows, ok := doc["data"].([]interface{}); ok {
			return Response{Shape: ShapeData, Rows: toRows(rows)}
		}
	case []interface{}:
		if sets, ok := resultSets(doc); ok {
			return Response{Shape: ShapeResultSets, Rows: sets}
		}
		return Response{Shape: ShapeArray, Rows: toRows(doc)}
	}
	return Response{Shape: ShapeUnknown}
}

// resultSets flattens [{name, result:[...]}] into rows. Every element must
// be an object with a result array.
func resultSets(items []interface{}) ([]Row, bool) {
	if len(items) == 0 {
		return nil, false
	}
	var rows []Row
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		result, ok := obj["result"].([]interface{})
		if !ok {
			return nil, false
		}
		rows = append(rows, toRows(result)...)
	}
	return rows, true
}

// toRows keeps object elements and skips anything else.
func toRows(items []interface{}) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			rows = append(rows, Row(obj))
		}
	}
	return rows
}

// Field is a semantic analytics column.
type Field int

const (
	FieldDate Field = iota
	FieldCount
	FieldSuccessful
	FieldDuration
	FieldHour
	FieldAssistant
	FieldReason
)

// aliases lists, per field, the keys different response layouts use. The
// first key holding a non-empty value wins.
var aliases = map[Field][]string{
	FieldDate:       {"date", "day", "createdDate", "bucket", "createdAt"},
	FieldCount:      {"count", "totalCalls", "calls", "countId"},
	FieldSuccessful: {"successful", "successfulCalls"},
	FieldDuration:   {"avgDuration", "averageDuration", "minutesUsed", "duration"},
	FieldHour:       {"hour", "createdHour", "bucket"},
	FieldAssistant:  {"assistantId", "assistant_id", "assistant"},
	FieldReason:     {"endedReason", "reason"},
}

// Value returns the first non-empty value for f.
func (r Row) Value(f Field) (interface{}, bool) {
	for _, key := range aliases[f] {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String returns f as a string, formatting numbers without exponent.
func (r Row) String(f Field) string {
	v, ok := r.Value(f)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Number returns f as a number, 0 when absent or unparseable.
func (r Row) Number(f Field) float64 {
	v, ok := r.Value(f)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}
