package main

import (
	"os"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.List(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(res)
				}
				if len(res.Snapshots) == 0 {
					return writePlain("no snapshots (store size %s)\n", humanBytes(res.StoreBytes))
				}
				if err := renderSnapshotTable(os.Stdout, res.Snapshots); err != nil {
					return err
				}
				return writePlain("%d snapshots, store size %s\n", len(res.Snapshots), humanBytes(res.StoreBytes))
			})
		},
	}
}
