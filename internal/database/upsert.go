// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/validation"
)

// UpsertInstitutions inserts or replaces institutions by id. Size and setting
// are stored canonicalised. The batch is validated up front and written in one
// transaction.
func (db *DB) UpsertInstitutions(ctx context.Context, institutions []models.Institution) (err error) {
	if len(institutions) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "institutions", time.Since(start), err) }()

	normalized := make([]models.Institution, len(institutions))
	for i := range institutions {
		inst := institutions[i].Normalized()
		if verr := validation.ValidateStruct(&inst); verr != nil {
			return fmt.Errorf("%w: institution %d: %v", ErrInvalidRecord, i, verr)
		}
		normalized[i] = inst
	}
	keep := lastWins(len(normalized), func(i int) string { return normalized[i].ID })

	return db.inTx(ctx, `
		INSERT INTO institutions (id, name, location, size, setting, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			size = excluded.size,
			setting = excluded.setting,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		len(keep), func(i int) []interface{} {
			inst := &normalized[keep[i]]
			return []interface{}{inst.ID, inst.Name, inst.Location, inst.Size, inst.Setting, inst.Description}
		})
}

// UpsertOutcomes inserts or replaces outcome records by (subject_id,
// institution_id). When the batch repeats a pair, the last record wins.
// records is not modified.
func (db *DB) UpsertOutcomes(ctx context.Context, records []models.OutcomeRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "outcome_records", time.Since(start), err) }()

	recs := make([]models.OutcomeRecord, len(records))
	for i := range records {
		rec := records[i]
		rec.SubjectID = strings.TrimSpace(rec.SubjectID)
		rec.InstitutionID = strings.TrimSpace(rec.InstitutionID)
		if verr := validation.ValidateStruct(&rec); verr != nil {
			return fmt.Errorf("%w: outcome %d: %v", ErrInvalidRecord, i, verr)
		}
		recs[i] = rec
	}
	keep := lastWins(len(recs), func(i int) string { return recs[i].SubjectID + "\x00" + recs[i].InstitutionID })

	return db.inTx(ctx, `
		INSERT INTO outcome_records (subject_id, institution_id, rating, updated_at)
		VALUES (?, ?, ?, now())
		ON CONFLICT (subject_id, institution_id) DO UPDATE SET
			rating = excluded.rating,
			updated_at = excluded.updated_at`,
		len(keep), func(i int) []interface{} {
			rec := &recs[keep[i]]
			return []interface{}{rec.SubjectID, rec.InstitutionID, rec.Rating}
		})
}

// UpsertSubjectProfiles inserts or replaces subject profiles by subject id.
// Every profile must carry a subject id.
func (db *DB) UpsertSubjectProfiles(ctx context.Context, profiles []models.Profile) (err error) {
	if len(profiles) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "subject_profiles", time.Since(start), err) }()

	type row struct {
		id, institution, region string
		payload                 []byte
	}
	rows := make([]row, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		id := strings.TrimSpace(p.SubjectID)
		if id == "" {
			return fmt.Errorf("%w: subject %d has no subject_id", ErrInvalidRecord, i)
		}
		if verr := validation.ValidateStruct(p); verr != nil {
			return fmt.Errorf("%w: subject %q: %v", ErrInvalidRecord, id, verr)
		}
		stored := *p
		stored.SubjectID = id
		stored.InstitutionID = strings.TrimSpace(p.InstitutionID)
		payload, mErr := json.Marshal(&stored)
		if mErr != nil {
			return fmt.Errorf("encode subject %q: %w", id, mErr)
		}
		rows[i] = row{
			id:          id,
			institution: stored.InstitutionID,
			region:      models.Canonical(p.Geographic.Region),
			payload:     payload,
		}
	}

	keep := lastWins(len(rows), func(i int) string { return rows[i].id })

	return db.inTx(ctx, `
		INSERT INTO subject_profiles (subject_id, institution_id, region, payload, updated_at)
		VALUES (?, ?, ?, ?, now())
		ON CONFLICT (subject_id) DO UPDATE SET
			institution_id = excluded.institution_id,
			region = excluded.region,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		len(keep), func(i int) []interface{} {
			r := &rows[keep[i]]
			return []interface{}{r.id, r.institution, r.region, string(r.payload)}
		})
}

// lastWins returns, in first-seen key order, the index of the last record
// for each key. A single statement cannot touch the same key twice, so
// repeats are collapsed before writing.
func lastWins(n int, key func(i int) string) []int {
	last := make(map[string]int, n)
	order := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := key(i)
		if _, seen := last[k]; !seen {
			order = append(order, k)
		}
		last[k] = i
	}
	out := make([]int, len(order))
	for i, k := range order {
		out[i] = last[k]
	}
	return out
}

// inTx executes query once per row inside a single transaction.
func (db *DB) inTx(ctx context.Context, query string, n int, argsFor func(i int) []interface{}) (err error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, argsFor(i)...); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
