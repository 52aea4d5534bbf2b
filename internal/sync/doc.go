// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

/*
Package sync copies call history from the voice platform into the store.

A Synchronizer walks a set of assistant registrations one at a time. For each
assistant it lists recent calls, fetches a transcript for every call that has
ended, and upserts one call record per call. A failure on a single call is
logged and skipped; a failed listing is reported in that assistant's result.
Records are keyed by (user, remote call id), so repeated runs never duplicate
rows.

Two entry points exist:

  - SyncUser: a user's active assistants, newest calls up to SYNC_USER_LIMIT
  - SyncAll: every active assistant of every user, calls created within
    SYNC_CRON_LOOKBACK, up to SYNC_CRON_LIMIT per assistant

The Manager runs SyncAll on a ticker when SYNC_SCHEDULE_ENABLED is set. It is
started under the supervisor tree through services.SyncService.
*/
package sync
