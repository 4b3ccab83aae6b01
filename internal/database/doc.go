// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package database is the DuckDB-backed reference data repository.

It stores institutions, outcome records and subject profiles, and implements
recommend.Repository so the engine can reload its snapshot from it. The CLI
import command writes through the Upsert methods.

# Schema

	institutions      id PK, name, location, size, setting, description
	outcome_records   (subject_id, institution_id) PK, rating
	subject_profiles  subject_id PK, institution_id, region, payload (profile JSON)

Profiles are stored whole as JSON. Only the columns needed by
models.ProfileFilter are broken out; size, setting and location come from a
join against institutions.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	profiles, err := db.ListSubjectProfiles(ctx, &models.ProfileFilter{
	    Settings: []string{"urban"},
	    Limit:    100,
	})

Every read and write runs under DatabaseConfig.QueryTimeout and records
campusmatch_duckdb_query_duration_seconds.
*/
package database
