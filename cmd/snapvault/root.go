package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/format"
)

type outputOptions struct {
	json bool
	yaml bool
}

// structured reports whether a machine-readable format was requested.
func (o *outputOptions) structured() bool {
	return o.json || o.yaml
}

func (o *outputOptions) formatter() (format.Formatter, error) {
	switch {
	case o.json && o.yaml:
		return nil, fmt.Errorf("--json and --yaml cannot be combined")
	case o.yaml:
		return format.ByName("yaml")
	default:
		return format.ByName("json")
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	out := &outputOptions{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "snapvault",
		Short:         "Snapvault keeps deduplicated, content-addressed snapshots of directory trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			formatter, err := out.formatter()
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSnapshotCmd(cfg, out),
		newRestoreCmd(cfg, out),
		newListCmd(cfg, out),
		newPruneCmd(cfg, out),
		newCheckCmd(cfg, out),
		newGCCmd(cfg, out),
		newInfoCmd(cfg, out),
		newMigrateCmd(cfg, out),
		newConfigCmd(cfg, out),
	)

	return cmd
}
