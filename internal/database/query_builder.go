// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package database

import (
	"fmt"
	"strings"

	"github.com/tomtom215/campusmatch/internal/models"
)

// buildInClause creates a parameterized IN clause. Items are canonicalised
// so they compare against lower-cased columns.
//
//	placeholders, args := buildInClause([]string{"Urban", "rural"})
//	// placeholders = "?,?"
//	// args = []interface{}{"urban", "rural"}
func buildInClause(items []string) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = models.Canonical(item)
	}
	return strings.Join(placeholders, ","), args
}

// buildProfileFilterConditions translates f into SQL conditions over
// subject_profiles p LEFT JOIN institutions i. It mirrors
// models.ProfileFilter.Matches: lists are OR within themselves and AND across
// each other. The result is appended to a "WHERE 1=1" base query.
func buildProfileFilterConditions(f *models.ProfileFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	addIn := func(column string, items []string) {
		if len(items) == 0 {
			return
		}
		placeholders, inArgs := buildInClause(items)
		conditions = append(conditions, fmt.Sprintf("lower(trim(%s)) IN (%s)", column, placeholders))
		args = append(args, inArgs...)
	}

	addIn("p.subject_id", f.SubjectIDs)
	addIn("p.institution_id", f.InstitutionIDs)
	addIn("i.setting", f.Settings)
	addIn("i.size", f.Sizes)

	var regionClauses []string
	for _, r := range f.Regions {
		region := models.Canonical(r)
		if region == "" {
			continue
		}
		regionClauses = append(regionClauses, "(contains(lower(i.location), ?) OR p.region = ?)")
		args = append(args, region, region)
	}
	if len(f.Regions) > 0 {
		if len(regionClauses) == 0 {
			// Only blank regions were given; Matches never accepts those.
			conditions = append(conditions, "FALSE")
		} else {
			conditions = append(conditions, "("+strings.Join(regionClauses, " OR ")+")")
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conditions, " AND "), args
}
