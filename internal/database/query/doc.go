// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package query builds parameterized SQL WHERE clauses for the database
// package.
//
// Filters with optional parts, like the call-history listing, are built
// with a WhereBuilder so placeholder numbering stays consistent no matter
// which filters are present:
//
//	wb := query.NewWhereBuilder()
//	wb.Eq("c.user_id", filter.UserID)
//	wb.EqIfSet("c.assistant_id", filter.AssistantID)
//	wb.EqIfSet("c.status", filter.Status)
//	limit, offset := wb.Arg(filter.Limit), wb.Arg(filter.Offset)
//	where, args := wb.BuildWithPrefix()
//
//	sql := "SELECT ... FROM call_history c " + where +
//	    " ORDER BY c.created_at DESC LIMIT " + limit + " OFFSET " + offset
//	rows, err := db.QueryContext(ctx, sql, args...)
//
// Column names are written by the caller and never come from user input;
// values are always bound.
//
// WhereBuilder instances are not safe for concurrent use.
package query
