package main

import (
	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newSnapshotCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <dir>",
		Short: "Record a snapshot of a directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.Snapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(res)
				}
				return writePlain("snapshot %d: %d files (%d new blobs, %d reused, %d skipped), %s from %s\n",
					res.SnapshotID, res.Files, res.NewBlobs, res.ReusedBlobs, res.Skipped, humanBytes(res.Bytes), res.Root)
			})
		},
	}
}
