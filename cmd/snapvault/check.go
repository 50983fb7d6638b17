package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newCheckCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every blob's content still matches its hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.Check(cmd.Context())
				if err != nil {
					return err
				}

				if out.structured() {
					if err := writeStructured(res); err != nil {
						return err
					}
				} else {
					for _, issue := range res.Issues {
						line := fmt.Sprintf("%s %s %s", issue.Status, shortHash(issue.Hash), issue.SourcePath)
						if issue.Error != "" {
							line += ": " + issue.Error
						}
						if err := writePlain("%s\n", line); err != nil {
							return err
						}
					}
					if err := writePlain("checked %d blobs: %d ok, %d missing, %d corrupted\n", res.Total, res.OK, res.Missing, res.Corrupted); err != nil {
						return err
					}
				}

				if !res.Healthy() {
					return fmt.Errorf("check found %d missing and %d corrupted blobs", res.Missing, res.Corrupted)
				}
				return nil
			})
		},
	}
}
