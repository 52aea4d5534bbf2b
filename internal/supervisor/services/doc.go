// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package services adapts Callboard's long-running components to
// suture.Service: the HTTP server and the scheduled call-history sync.
package services
