package main

import (
	"github.com/spf13/cobra"

	"snapvault/internal/config"
	"snapvault/internal/vault"
)

type infoResponse struct {
	vault.Info `yaml:",inline"`

	DBPath  string `json:"db_path" yaml:"db_path"`
	CASRoot string `json:"cas_root" yaml:"cas_root"`
}

func newInfoCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show store statistics and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cfg, func(engine *vault.Engine) error {
				info, err := engine.Info(cmd.Context())
				if err != nil {
					return err
				}
				resp := infoResponse{DBPath: cfg.DBPath, CASRoot: cfg.CASRoot(), Info: *info}

				if out.structured() {
					return writeStructured(resp)
				}

				hashAlgorithm := info.HashAlgorithm
				if hashAlgorithm == "" {
					hashAlgorithm = string(info.Configured) + " (not yet pinned)"
				}
				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("store_size: %s\n", humanBytes(info.StoreBytes))
				_ = writePlain("schema_version: %d\n", info.SchemaVersion)
				_ = writePlain("storage_mode: %s\n", info.StorageMode)
				_ = writePlain("cas_root: %s\n", resp.CASRoot)
				_ = writePlain("hash_algorithm: %s\n", hashAlgorithm)
				_ = writePlain("snapshots: %d\n", info.Snapshots)
				_ = writePlain("blobs: %d\n", info.Blobs)
				_ = writePlain("links: %d\n", info.Links)
				_ = writePlain("pending_reclaims: %d\n", info.PendingReclaims)
				return nil
			})
		},
	}
}
