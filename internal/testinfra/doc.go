// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

// Package testinfra starts Docker containers for integration tests.
//
// Tests using it carry the integration build tag:
//
//	go test -tags integration ./internal/database/...
//
// A PostgreSQL container backs the store tests for DATABASE_DRIVER=postgres:
//
//	pg, err := testinfra.NewPostgresContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, pg)
//
//	db, err := database.New(&config.DatabaseConfig{Driver: "postgres", URL: pg.DSN})
//
// Tests are skipped when Docker is unavailable. The first run pulls the image.
package testinfra
