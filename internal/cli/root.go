// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/campusmatch/internal/app"
	"github.com/tomtom215/campusmatch/internal/config"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/models"
)

// globalOptions is shared by every subcommand. cfg is populated by the root
// command's PersistentPreRunE.
type globalOptions struct {
	configPath string
	cfg        *config.Config
}

// NewRootCommand builds the campusmatch command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "campusmatch",
		Short: "Student/institution compatibility recommendations",
		Long: `campusmatch ranks institutions for a student profile by retrieving
similar past students, scoring them across eight compatibility categories
and blending the result with a rating model trained on their outcomes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			lc := cfg.LoggerConfig()
			lc.Output = cmd.ErrOrStderr()
			logging.Init(lc)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $CONFIG_PATH, ./config.yaml)")

	cmd.AddCommand(
		newImportCommand(opts),
		newBuildCommand(opts),
		newRankCommand(opts),
		newExplainCommand(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

// openComponents opens the configured components. The caller must Close them.
func (o *globalOptions) openComponents() (*app.Components, error) {
	return app.Open(o.cfg, logging.Logger())
}

// openAndLoad opens the components and builds the indexes from the database.
func (o *globalOptions) openAndLoad(ctx context.Context) (*app.Components, error) {
	c, err := o.openComponents()
	if err != nil {
		return nil, err
	}
	if err := c.Engine.Reload(ctx); err != nil {
		closeComponents(c)
		return nil, fmt.Errorf("failed to build indexes: %w", err)
	}
	return c, nil
}

func closeComponents(c *app.Components) {
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close components")
	}
}

// readJSONFile decodes the JSON document at path into v.
func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// readProfile reads a single query profile.
func readProfile(path string) (*models.Profile, error) {
	var p models.Profile
	if err := readJSONFile(path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
