// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for schema operations. Schema creation
// runs once at startup and can be slow on a cold file.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the reference data tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS institutions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL DEFAULT '',
			setting TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT now()
		)`,

		// One rating per (subject, institution); re-imports overwrite.
		`CREATE TABLE IF NOT EXISTS outcome_records (
			subject_id TEXT NOT NULL,
			institution_id TEXT NOT NULL,
			rating DOUBLE NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT now(),
			PRIMARY KEY (subject_id, institution_id)
		)`,

		// The full profile lives in payload as JSON. institution_id and region
		// are broken out for filtering.
		`CREATE TABLE IF NOT EXISTS subject_profiles (
			subject_id TEXT PRIMARY KEY,
			institution_id TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT now()
		)`,
	}
}
