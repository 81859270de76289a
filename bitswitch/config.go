package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/bitswitch/pkg/config"
)

var errInvalidSettings = errors.New("settings are invalid")

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check the provisioning configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigCheckCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with default values\nEdit %s with your settings and run provision\n", path, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yaml", "Configuration file path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigCheckCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the settings against the configured board profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return checkSettings(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yaml", "Configuration file path")
	return cmd
}

// checkSettings resolves the profile and validates the settings, printing every
// problem. It fails when the profile is invalid or the settings have errors.
func checkSettings(out io.Writer, cfg *config.Config) error {
	p, err := cfg.Profile()
	if err != nil {
		return err
	}

	v := cfg.Settings.Validate(p)
	for _, w := range v.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range v.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	if !v.OK() {
		return fmt.Errorf("%w: %d error(s)", errInvalidSettings, len(v.Errors))
	}
	fmt.Fprintf(out, "Settings are valid for %s (%s)\n", p.DeviceType, cfg.Board.Variant)
	return nil
}
