/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/keymanager"
)

// NewGenerateKeysCmd populates the keys-dir with a MOK keypair, never
// overwriting one that already exists, per spec.md §7's "KeyIo, KeyFormat
// ... never auto-overwrite user keys" rule.
func NewGenerateKeysCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "generate-keys",
		Short: "Generate the Machine Owner Key and supporting signing keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyBits, _ := cmd.Flags().GetInt("key-bits")
			mokDays, _ := cmd.Flags().GetInt("mok-days")

			cfg, err := buildConfig(cmd, "")
			if err != nil {
				return err
			}
			cfg.KeyBits = keyBits
			cfg.MokValidityDays = mokDays

			mok, err := keymanager.EnsureMok(cfg, "photon-mokboot", keyBits, mokDays)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "MOK fingerprint %s written to %s\n", keymanager.Fingerprint(mok), cfg.Keys.Path)
			return nil
		},
	}
	c.Flags().Int("key-bits", 2048, "MOK RSA key size (2048, 3072, 4096)")
	c.Flags().Int("mok-days", 3650, "MOK certificate validity window in days")
	return c
}
