// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/campusmatch/internal/recommend"
)

type explainOptions struct {
	profile     string
	institution string
	json        bool
}

func newExplainCommand(g *globalOptions) *cobra.Command {
	opts := &explainOptions{}
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain an institution's fit for a student profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, g, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "query profile JSON file (required)")
	cmd.Flags().StringVarP(&opts.institution, "institution", "i", "", "institution id (required)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("profile")     //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("institution") //nolint:errcheck // flag is defined above
	return cmd
}

func runExplain(cmd *cobra.Command, g *globalOptions, opts *explainOptions) error {
	query, err := readProfile(opts.profile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := g.openAndLoad(ctx)
	if err != nil {
		return err
	}
	defer closeComponents(c)

	exp, err := c.Engine.Explain(ctx, query, opts.institution)
	if err != nil {
		return fmt.Errorf("failed to explain %s: %w", opts.institution, err)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, exp)
	}

	fmt.Fprintf(out, "%s (%d peers, overall %.3f)\n",
		displayName(exp.InstitutionName, exp.InstitutionID), exp.PeerCount, exp.Compatibility.Overall)
	printList(out, "Strengths", exp.Strengths)
	printList(out, "Considerations", exp.Considerations)

	fmt.Fprintln(out, "\nCategory scores:")
	for _, cat := range recommend.Categories {
		fmt.Fprintf(out, "  %-14s %.3f\n", cat, exp.Compatibility.Get(cat))
	}
	return nil
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
