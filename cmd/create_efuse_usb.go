/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/efuse"
	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// NewCreateEfuseUSBCmd writes the eFuse-simulation payload to a FAT32
// USB device, per spec.md §6's create-efuse-usb action. The MOK
// keypair's public key stands in for the SRK: this module has no
// separate SRK keypair concept, so the fuse digest is computed over
// the same certificate the rest of the boot chain already trusts.
func NewCreateEfuseUSBCmd() *cobra.Command {
	var yes bool
	var closed bool
	c := &cobra.Command{
		Use:   "create-efuse-usb <device>",
		Short: "Write the eFuse-simulation payload to a USB device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := args[0]
			if !yes {
				return mokerror.New(mokerror.InputValidation, cliStage, device,
					fmt.Errorf("refusing to write to %s without --yes", device))
			}

			cfg, err := buildConfig(cmd, "")
			if err != nil {
				return err
			}

			mok, err := keymanager.EnsureMok(cfg, "photon-mokboot", cfg.KeyBits, cfg.MokValidityDays)
			if err != nil {
				return err
			}

			secConfig := efuse.SecConfigOpen
			if closed {
				secConfig = efuse.SecConfigClosed
			}

			if err := efuse.Build(cfg, efuse.Config{
				SRKPublicKeyDER: mok.CertDER,
				SecConfig:       secConfig,
			}, device); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote eFuse payload (%s) to %s\n", secConfig, device)
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "Confirm writing to the target device")
	c.Flags().BoolVar(&closed, "closed", false, "Write sec_config.bin as closed (0x02) instead of open (0x00)")
	return c
}
