// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

package query

import (
	"strconv"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with numbered ($1, $2, ...)
// placeholders, the form both the DuckDB and PostgreSQL drivers accept.
//
// Placeholder numbers follow the order values are bound, so values used
// outside the WHERE clause (select-list filters, LIMIT, OFFSET) are bound
// with Arg on the same builder:
//
//	wb := query.NewWhereBuilder()
//	wb.Eq("user_id", userID)
//	wb.EqIfSet("status", status)
//	limit := wb.Arg(50)
//	where, args := wb.BuildWithPrefix()
//	// WHERE user_id = $1 AND status = $2 ... LIMIT $3
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// Arg binds value and returns its placeholder without adding a clause.
func (wb *WhereBuilder) Arg(value interface{}) string {
	wb.args = append(wb.args, value)
	return "$" + strconv.Itoa(len(wb.args))
}

// Eq adds "column = $n".
func (wb *WhereBuilder) Eq(column string, value interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, column+" = "+wb.Arg(value))
	return wb
}

// EqIfSet adds "column = $n" unless value is empty.
func (wb *WhereBuilder) EqIfSet(column, value string) *WhereBuilder {
	if value == "" {
		return wb
	}
	return wb.Eq(column, value)
}

// Build joins the clauses with AND and returns them with every bound
// argument. Returns ("1=1", args) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", wb.args
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}
