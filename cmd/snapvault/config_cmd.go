package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
)

type configEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func newConfigCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change configuration",
		Long: `Inspect or change configuration.

Settings are read from ~/.snapvault.toml, then from ./.snapvault.toml when
SNAPVAULT_TRUST_PROJECT_CONFIG=true. SNAPVAULT_CONFIG_DIR replaces both.
SNAPVAULT_DB, SNAPVAULT_STORAGE_MODE and SNAPVAULT_CAS_ROOT override files.`,
	}

	cmd.AddCommand(
		newConfigGetCmd(cfg),
		newConfigListCmd(cfg, out),
		newConfigSetCmd(),
	)
	return cmd
}

// effectiveValue resolves key against the loaded config, filling derived defaults.
func effectiveValue(cfg *config.Config, key string) (string, error) {
	if !config.IsAllowedKey(key) {
		return "", fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(config.AllowedKeys(), ", "))
	}
	value, err := cfg.Get(key)
	if err != nil {
		return "", err
	}
	if key == "storage.cas_root" && value == "" {
		value = cfg.CASRoot()
	}
	return value, nil
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := effectiveValue(cfg, args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]configEntry, 0, len(config.AllowedKeys()))
			for _, key := range config.AllowedKeys() {
				value, err := effectiveValue(cfg, key)
				if err != nil {
					return err
				}
				entries = append(entries, configEntry{Key: key, Value: value})
			}

			if out.structured() {
				return writeStructured(entries)
			}
			for _, e := range entries {
				if err := writePlain("%s = %s\n", e.Key, e.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a key to the project or global config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFn := config.ProjectPath
			if global {
				pathFn = config.GlobalPath
			}
			path, err := pathFn()
			if err != nil {
				return err
			}

			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			slog.Debug("config updated", "path", path, "key", args[0])
			return writePlain("%s updated in %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to ~/.snapvault.toml instead of ./.snapvault.toml")
	return cmd
}
