// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/campusmatch/internal/recommend"
)

type rankOptions struct {
	profile string
	top     int
	focus   []string
	json    bool
}

func newRankCommand(g *globalOptions) *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank institutions for a student profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRank(cmd, g, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "query profile JSON file (required)")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "number of institutions (default: ranker.default_top_n)")
	cmd.Flags().StringSliceVar(&opts.focus, "focus", nil, "score only these categories, e.g. career,academic")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("profile") //nolint:errcheck // flag is defined above
	return cmd
}

func runRank(cmd *cobra.Command, g *globalOptions, opts *rankOptions) error {
	query, err := readProfile(opts.profile)
	if err != nil {
		return err
	}
	rankOpts := recommend.RankOptions{TopN: opts.top}
	for _, name := range opts.focus {
		c, err := recommend.ParseCategory(name)
		if err != nil {
			return err
		}
		rankOpts.FocusCategories = append(rankOpts.FocusCategories, c)
	}

	ctx := cmd.Context()
	c, err := g.openAndLoad(ctx)
	if err != nil {
		return err
	}
	defer closeComponents(c)

	recs, err := c.Engine.RankWithOptions(ctx, query, rankOpts)
	if err != nil {
		return fmt.Errorf("failed to rank: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No recommendations.")
		return nil
	}

	fmt.Fprintf(out, "%-4s %-32s %8s %10s %6s\n", "#", "INSTITUTION", "OVERALL", "PREDICTED", "PEERS")
	for i := range recs {
		r := &recs[i]
		predicted := "-"
		if r.PredictedRating > 0 {
			predicted = fmt.Sprintf("%.2f", r.PredictedRating)
		}
		fmt.Fprintf(out, "%-4d %-32s %8.3f %10s %6d\n", i+1, truncate(displayName(r.InstitutionName, r.InstitutionID), 32),
			r.Overall, predicted, r.PeerCount)
	}
	return nil
}

func displayName(name, id string) string {
	if strings.TrimSpace(name) == "" {
		return id
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
