// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/campusmatch/internal/database"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/models"
)

type importOptions struct {
	institutions string
	outcomes     string
	profiles     string
}

func newImportCommand(g *globalOptions) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import reference data from JSON files",
		Long: `Import upserts institutions, outcome records and subject profiles into
the database. Each file holds a JSON array. Records are keyed by id (or by
subject and institution for outcomes); a repeated key replaces the stored row.

Institutions are imported first so profiles and outcomes can refer to them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, g, opts)
		},
	}
	cmd.Flags().StringVar(&opts.institutions, "institutions", "", "JSON array of institutions")
	cmd.Flags().StringVar(&opts.outcomes, "outcomes", "", "JSON array of outcome records")
	cmd.Flags().StringVar(&opts.profiles, "profiles", "", "JSON array of subject profiles")
	return cmd
}

func runImport(cmd *cobra.Command, g *globalOptions, opts *importOptions) error {
	if opts.institutions == "" && opts.outcomes == "" && opts.profiles == "" {
		return fmt.Errorf("nothing to import: pass --institutions, --outcomes or --profiles")
	}

	// Parse everything before touching the database.
	var (
		institutions []models.Institution
		outcomes     []models.OutcomeRecord
		profiles     []models.Profile
	)
	if opts.institutions != "" {
		if err := readJSONFile(opts.institutions, &institutions); err != nil {
			return err
		}
	}
	if opts.outcomes != "" {
		if err := readJSONFile(opts.outcomes, &outcomes); err != nil {
			return err
		}
	}
	if opts.profiles != "" {
		if err := readJSONFile(opts.profiles, &profiles); err != nil {
			return err
		}
	}

	db, err := database.New(&g.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	ctx := cmd.Context()
	start := time.Now()
	if err := db.UpsertInstitutions(ctx, institutions); err != nil {
		return fmt.Errorf("failed to import institutions: %w", err)
	}
	if err := db.UpsertSubjectProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("failed to import subject profiles: %w", err)
	}
	if err := db.UpsertOutcomes(ctx, outcomes); err != nil {
		return fmt.Errorf("failed to import outcomes: %w", err)
	}

	nInst, nOut, nSubj, err := db.Counts(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d institutions, %d outcome records, %d subject profiles in %v\n",
		len(institutions), len(outcomes), len(profiles), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "Database now holds %d institutions, %d outcome records, %d subject profiles\n",
		nInst, nOut, nSubj)
	return nil
}
