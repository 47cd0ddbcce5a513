/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/types"
)

// NewCleanCmd removes generated artifacts under keys-dir and/or
// output-dir, per spec.md §6's clean action. It never touches
// MOK.{key,crt,der} unless --keys-dir-clean itself is the directory removed,
// since those are user keys this module never auto-overwrites.
func NewCleanCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated build artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, _ := cmd.Flags().GetString("output-dir")
			keysDir, _ := cmd.Flags().GetString("keys-dir-clean")

			cfg := config.New(config.WithLogger(types.NewLogger()))

			if outputDir != "" {
				if err := cfg.Fs.RemoveAll(outputDir); err != nil {
					return mokerror.New(mokerror.IsoWriteFailed, cliStage, outputDir, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", outputDir)
			}
			if keysDir != "" {
				if err := cfg.Fs.RemoveAll(keysDir); err != nil {
					return mokerror.New(mokerror.KeyIo, cliStage, keysDir, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", keysDir)
			}
			return nil
		},
	}
	c.Flags().String("output-dir", "", "Output directory to remove")
	c.Flags().String("keys-dir-clean", "", "Keys directory to remove (distinct from the persistent --keys-dir flag; requires explicit opt-in)")
	return c
}
