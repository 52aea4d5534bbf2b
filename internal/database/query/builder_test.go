// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_Filters(t *testing.T) {
	tests := []struct {
		name      string
		build     func(wb *WhereBuilder)
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "single equality",
			build:     func(wb *WhereBuilder) { wb.Eq("user_id", "u1") },
			wantWhere: "user_id = $1",
			wantArgs:  []interface{}{"u1"},
		},
		{
			name: "optional filters set",
			build: func(wb *WhereBuilder) {
				wb.Eq("c.user_id", "u1").EqIfSet("c.assistant_id", "a1").EqIfSet("c.status", "ended")
			},
			wantWhere: "c.user_id = $1 AND c.assistant_id = $2 AND c.status = $3",
			wantArgs:  []interface{}{"u1", "a1", "ended"},
		},
		{
			name: "empty optional filter skipped",
			build: func(wb *WhereBuilder) {
				wb.Eq("c.user_id", "u1").EqIfSet("c.assistant_id", "").EqIfSet("c.status", "queued")
			},
			wantWhere: "c.user_id = $1 AND c.status = $2",
			wantArgs:  []interface{}{"u1", "queued"},
		},
		{
			name: "args bound before clauses keep their numbers",
			build: func(wb *WhereBuilder) {
				wb.Arg("ended")
				wb.Eq("user_id", "u1")
			},
			wantWhere: "user_id = $2",
			wantArgs:  []interface{}{"ended", "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			tt.build(wb)

			where, args := wb.Build()
			if where != tt.wantWhere {
				t.Errorf("Build() where = %q, want %q", where, tt.wantWhere)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("Build() args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWhereBuilder_Arg(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Eq("user_id", "u1")

	if got := wb.Arg(50); got != "$2" {
		t.Errorf("Arg() = %q, want $2", got)
	}
	if got := wb.Arg(0); got != "$3" {
		t.Errorf("Arg() = %q, want $3", got)
	}
	if where, _ := wb.Build(); where != "user_id = $1" {
		t.Errorf("Arg should not add clauses, where = %q", where)
	}
}

func TestWhereBuilder_BuildWithPrefix(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Eq("user_id", "u1")

	where, _ := wb.BuildWithPrefix()
	if where != "WHERE user_id = $1" {
		t.Errorf("BuildWithPrefix() = %q", where)
	}

	empty, _ := NewWhereBuilder().BuildWithPrefix()
	if empty != "WHERE 1=1" {
		t.Errorf("empty BuildWithPrefix() = %q", empty)
	}
}
