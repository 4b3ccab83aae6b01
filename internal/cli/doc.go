// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package cli implements the campusmatch operator command line.

Every command loads configuration the same way the server does (defaults,
then the YAML file named by --config or CONFIG_PATH, then environment
variables) and logs to stderr so stdout stays machine readable.

Commands:

  - import: upsert institutions, outcome records and subject profiles from
    JSON array files into DuckDB
  - build: load the reference snapshot, build the indexes and print index
    statistics; vectors are persisted when embedding.store_path is set
  - rank: rank institutions for a query profile
  - explain: explain one institution's fit for a query profile

Example:

	campusmatch --config config.yaml import --institutions institutions.json --profiles profiles.json
	campusmatch build
	campusmatch rank --profile query.json --top 5 --focus career,academic
	campusmatch explain --profile query.json --institution harbor-tech --json
*/
package cli
