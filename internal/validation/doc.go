// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package validation validates API request structs with go-playground/validator v10.
//
// A single validator instance is shared by all handlers; it caches struct
// metadata after first use and is safe for concurrent use. Errors name fields
// by their json tag and carry a readable message per failed rule.
//
//	var req validation.CreateAssistantRequest
//	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
//	    // 400
//	}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // 400 with verr.Details()
//	}
//
// Custom rules:
//   - isodate: "2006-01-02" or an RFC 3339 timestamp
package validation
