// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package analytics

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape Shape
		wantRows  int
	}{
		{"nil", "", ShapeUnknown, 0},
		{"null", "null", ShapeUnknown, 0},
		{"malformed", "{not json", ShapeUnknown, 0},
		{"scalar", "42", ShapeUnknown, 0},
		{"object without rows", `{"message":"ok"}`, ShapeUnknown, 0},
		{"rows", `{"rows":[{"date":"2024-01-01"},{"date":"2024-01-02"}]}`, ShapeRows, 2},
		{"rows win over data", `{"rows":[{"a":1}],"data":[{"a":1},{"a":2}]}`, ShapeRows, 1},
		{"data", `{"data":[{"hour":9}]}`, ShapeData, 1},
		{"empty rows", `{"rows":[]}`, ShapeRows, 0},
		{"array", `[{"count":1},{"count":2},"junk"]`, ShapeArray, 2},
		{"result sets", `[{"name":"q","result":[{"count":1}]},{"name":"r","result":[{"count":2},{"count":3}]}]`, ShapeResultSets, 3},
		{"mixed array is plain", `[{"name":"q","result":[{"count":1}]},{"count":2}]`, ShapeArray, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			got := Decode(raw)
			if got.Shape != tt.wantShape {
				t.Errorf("Shape = %v, want %v", got.Shape, tt.wantShape)
			}
			if len(got.Rows) != tt.wantRows {
				t.Errorf("len(Rows) = %d, want %d", len(got.Rows), tt.wantRows)
			}
		})
	}
}

func TestResponseUsable(t *testing.T) {
	if (Response{Shape: ShapeRows}).Usable() {
		t.Error("empty rows should not be usable")
	}
	if (Response{Shape: ShapeUnknown, Rows: []Row{{}}}).Usable() {
		t.Error("unknown shape should not be usable")
	}
	if !(Response{Shape: ShapeData, Rows: []Row{{}}}).Usable() {
		t.Error("data with a row should be usable")
	}
}

func TestRowAliases(t *testing.T) {
	tests := []struct {
		name  string
		row   Row
		field Field
		wantS string
		wantN float64
	}{
		{"first alias", Row{"date": "2024-01-01", "day": "2024-01-02"}, FieldDate, "2024-01-01", 0},
		{"skips empty string", Row{"date": "", "day": "2024-01-02"}, FieldDate, "2024-01-02", 0},
		{"skips null", Row{"count": nil, "totalCalls": 7.0}, FieldCount, "7", 7},
		{"numeric string", Row{"calls": "12"}, FieldCount, "12", 12},
		{"unparseable is zero", Row{"count": "many"}, FieldCount, "many", 0},
		{"absent", Row{}, FieldDuration, "", 0},
		{"minutes alias", Row{"minutesUsed": 3.5}, FieldDuration, "3.5", 3.5},
		{"assistant snake case", Row{"assistant_id": "a1"}, FieldAssistant, "a1", 0},
		{"reason alias", Row{"reason": "busy"}, FieldReason, "busy", 0},
		{"large number", Row{"count": 1e7}, FieldCount, "10000000", 1e7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.String(tt.field); got != tt.wantS {
				t.Errorf("String() = %q, want %q", got, tt.wantS)
			}
			if got := tt.row.Number(tt.field); got != tt.wantN {
				t.Errorf("Number() = %v, want %v", got, tt.wantN)
			}
		})
	}
}
