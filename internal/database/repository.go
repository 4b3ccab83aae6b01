// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
)

// ListInstitutions returns every institution ordered by id.
func (db *DB) ListInstitutions(ctx context.Context) (institutions []models.Institution, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "institutions", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, location, size, setting, description
		FROM institutions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query institutions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	institutions = []models.Institution{}
	for rows.Next() {
		var inst models.Institution
		if err = rows.Scan(&inst.ID, &inst.Name, &inst.Location, &inst.Size, &inst.Setting, &inst.Description); err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		institutions = append(institutions, inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	return institutions, nil
}

// ListOutcomeRecords returns every outcome record ordered by subject and
// institution. The table holds one rating per pair.
func (db *DB) ListOutcomeRecords(ctx context.Context) (records []models.OutcomeRecord, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "outcome_records", time.Since(start), err) }()

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT subject_id, institution_id, rating
		FROM outcome_records
		ORDER BY subject_id, institution_id`)
	if err != nil {
		return nil, fmt.Errorf("query outcome records: %w", err)
	}
	defer closeWithLog(rows, "rows")

	records = []models.OutcomeRecord{}
	for rows.Next() {
		var rec models.OutcomeRecord
		if err = rows.Scan(&rec.SubjectID, &rec.InstitutionID, &rec.Rating); err != nil {
			return nil, fmt.Errorf("scan outcome record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome records: %w", err)
	}
	return records, nil
}

// ListSubjectProfiles returns the subject profiles matching filter, ordered by
// subject id. A nil or zero filter returns every profile.
func (db *DB) ListSubjectProfiles(ctx context.Context, filter *models.ProfileFilter) (profiles []models.Profile, err error) {
	if filter == nil {
		filter = &models.ProfileFilter{}
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "subject_profiles", time.Since(start), err) }()

	conditions, args := buildProfileFilterConditions(filter)
	query := `
		SELECT p.payload
		FROM subject_profiles p
		LEFT JOIN institutions i ON i.id = p.institution_id
		WHERE 1=1` + conditions + `
		ORDER BY p.subject_id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subject profiles: %w", err)
	}
	defer closeWithLog(rows, "rows")

	profiles = []models.Profile{}
	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan subject profile: %w", err)
		}
		var p models.Profile
		if err = json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode subject profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject profiles: %w", err)
	}
	return profiles, nil
}

// Counts returns the number of rows in each reference table.
func (db *DB) Counts(ctx context.Context) (institutions, outcomes, subjects int, err error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM institutions),
			(SELECT COUNT(*) FROM outcome_records),
			(SELECT COUNT(*) FROM subject_profiles)`).Scan(&institutions, &outcomes, &subjects)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count rows: %w", err)
	}
	return institutions, outcomes, subjects, nil
}
