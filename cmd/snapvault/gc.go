package main

import (
	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

func newGCCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete content queued by earlier prunes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cfg, func(engine *vault.Engine) error {
				res, err := engine.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(res)
				}
				return writeSweep(res)
			})
		},
	}
}
