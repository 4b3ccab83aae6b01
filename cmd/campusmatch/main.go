// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Command campusmatch is the operator CLI: it imports reference data, builds
// the indexes and answers rank and explain queries without the server.
package main

import "github.com/tomtom215/campusmatch/internal/cli"

func main() {
	cli.Execute()
}
