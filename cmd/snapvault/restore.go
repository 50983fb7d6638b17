package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newRestoreCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id> <outdir>",
		Short: "Write the files of a snapshot into a directory",
		Long: `Write the files of a snapshot into a directory.

Each file is written at its path relative to the snapshot root: a snapshot
of /data holding /data/docs/b.md restores it to <outdir>/docs/b.md. Missing
directories are created and existing files are replaced. Files whose
content can no longer be read are reported and skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSnapshotID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.Restore(cmd.Context(), id, args[1])
				if vault.IsNotFound(err) {
					slog.Warn("snapshot not found", "snapshot_id", id)
					writeWarning("snapshot %d not found", id)
					return nil
				}
				if err != nil {
					return err
				}

				if out.structured() {
					return writeStructured(res)
				}
				for _, warning := range res.Warnings {
					writeWarning("%s", warning)
				}
				for _, failure := range res.Failed {
					fmt.Fprintf(os.Stderr, "failed: %s (%s): %s\n", failure.Path, shortHash(failure.Hash), failure.Error)
				}
				return writePlain("restored %d files (%s) from snapshot %d to %s, %d failed\n",
					res.Restored, humanBytes(res.Bytes), res.SnapshotID, res.OutputDir, len(res.Failed))
			})
		},
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
