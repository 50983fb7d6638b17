package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newPruneCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <id>",
		Short: "Delete a snapshot and reclaim content no other snapshot uses",
		Long: `Delete a snapshot and every blob that no remaining snapshot links.

In index storage mode the reclaimed content is the original indexed file,
so pruning deletes files from the source tree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSnapshotID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.Prune(cmd.Context(), id)
				if vault.IsNotFound(err) {
					slog.Warn("snapshot not found", "snapshot_id", id)
					writeWarning("snapshot %d not found", id)
					return nil
				}
				if res == nil {
					return err
				}

				if out.structured() {
					if writeErr := writeStructured(res); writeErr != nil {
						return writeErr
					}
					return err
				}
				if plainErr := writePlain("pruned snapshot %d: %d links, %d orphaned blobs\n", res.SnapshotID, res.Links, len(res.OrphanedBlobs)); plainErr != nil {
					return plainErr
				}
				if res.Sweep != nil {
					if plainErr := writeSweep(res.Sweep); plainErr != nil {
						return plainErr
					}
				}
				return err
			})
		},
	}
}

func writeSweep(res *vault.SweepResult) error {
	if res.Failed > 0 {
		writeWarning("%d deletions failed and stay queued; run snapvault gc to retry", res.Failed)
	}
	return writePlain("reclaimed %d, skipped %d (content still in use), failed %d\n", res.Deleted, res.Skipped, res.Failed)
}
