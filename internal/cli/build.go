// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newBuildCommand(g *globalOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the indexes and print statistics",
		Long: `Build loads the reference snapshot, embeds every subject profile, builds
the similarity index and trains the rating model, then prints the resulting
index statistics. With embedding.store_path set the embeddings are persisted,
so a later server start only embeds profiles that changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, g, quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress bar")
	return cmd
}

func runBuild(cmd *cobra.Command, g *globalOptions, quiet bool) error {
	c, err := g.openComponents()
	if err != nil {
		return err
	}
	defer closeComponents(c)

	out := cmd.OutOrStdout()

	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	progress := func(done, total int) {
		if quiet {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding profiles[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}
		_ = bar.Set(done) //nolint:errcheck // display only
	}

	start := time.Now()
	if err := c.Engine.ReloadWithProgress(cmd.Context(), progress); err != nil {
		return fmt.Errorf("failed to build indexes: %w", err)
	}

	st := c.Engine.Status()
	fmt.Fprintf(out, "Build complete in %v (generation %d)\n", time.Since(start).Round(time.Millisecond), st.Generation)
	fmt.Fprintf(out, "  Institutions:     %d\n", st.Institutions)
	fmt.Fprintf(out, "  Subjects:         %d\n", st.Subjects)
	fmt.Fprintf(out, "  Indexed vectors:  %d\n", st.IndexedVectors)
	fmt.Fprintf(out, "  Skipped vectors:  %d\n", st.SkippedVectors)
	fmt.Fprintf(out, "  Pool strategy:    %s\n", st.PoolStrategy)
	if st.ModelTrained {
		fmt.Fprintf(out, "  Rating model:     v%d, %d ratings, train RMSE %.4f\n",
			st.ModelVersion, st.ModelRatings, st.ModelTrainRMSE)
	} else {
		fmt.Fprintf(out, "  Rating model:     not trained\n")
	}
	if c.Store != nil {
		if n, err := c.Store.Len(); err == nil {
			fmt.Fprintf(out, "  Stored vectors:   %d\n", n)
		}
	}
	return nil
}
