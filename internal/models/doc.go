// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package models defines the records shared by the ranking engine, the
repository adapter and the operator surfaces.

Key types:

  - Profile: a query (aspiring student) or candidate (existing subject) profile,
    one nested struct per compatibility category
  - Institution: immutable reference data for one institution
  - OutcomeRecord: (subject, institution, satisfaction rating) triple
  - Snapshot: the read-only reference data an index build consumes
  - ProfileFilter: predicate used when subject profiles are loaded on demand

Rating fields use two small integer types, Importance and QualityRating. Their
zero value means "not stated" and reads as the scale midpoint, so scoring code
never has to special-case absent input:

	var r models.Importance // not stated
	r.Value()               // 5
	models.Importance(14).Value() // 10

Categorical strings (setting, size, learning style) and tag sets are compared
after Normalized(), which lower-cases, trims and de-duplicates them. Profiles are
values; nothing in the engine mutates a caller's profile.
*/
package models
