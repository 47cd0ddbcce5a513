/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/loopback"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/pipeline"
)

const cliStage = "cli"

// extractKernelAndInitrd loopback-mounts isoPath read-only under a
// throwaway directory inside cfg.TmpDir and returns the bytes of
// /isolinux/vmlinuz and /isolinux/initrd.img — everything else the ISO
// Rewriter reads from the source ISO itself during its own extraction
// phase, this is only for the two inputs the rewriter expects already
// in hand.
func extractKernelAndInitrd(cfg *config.Config, isoPath string) (vmlinuz, initrd []byte, err error) {
	dev, err := loopback.Attach(cfg.Runner, isoPath)
	if err != nil {
		return nil, nil, err
	}
	defer dev.Close()

	mountPoint := filepath.Join(cfg.TmpDir, "build-iso-source")
	if mkErr := cfg.Fs.MkdirAll(mountPoint, 0o755); mkErr != nil {
		return nil, nil, mokerror.New(mokerror.IsoUnreadable, cliStage, mountPoint, mkErr)
	}
	if mountErr := dev.Mount(mountPoint, "iso9660", []string{"ro"}); mountErr != nil {
		return nil, nil, mountErr
	}
	defer dev.CleanClose()

	vmlinuz, err = cfg.Fs.ReadFile(filepath.Join(mountPoint, "isolinux", "vmlinuz"))
	if err != nil {
		return nil, nil, mokerror.New(mokerror.OriginalMissing, cliStage, "isolinux/vmlinuz", err)
	}
	initrd, err = cfg.Fs.ReadFile(filepath.Join(mountPoint, "isolinux", "initrd.img"))
	if err != nil {
		return nil, nil, mokerror.New(mokerror.OriginalMissing, cliStage, "isolinux/initrd.img", err)
	}
	return vmlinuz, initrd, nil
}

// NewBuildISOCmd rebuilds a Photon OS installer ISO for MOK-based
// UEFI Secure Boot, per spec.md §6's build-iso action.
func NewBuildISOCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "build-iso",
		Short: "Rebuild a Photon OS installer ISO signed against a Machine Owner Key",
		RunE: func(cmd *cobra.Command, args []string) error {
			release, _ := cmd.Flags().GetString("release")
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			driversDir, _ := cmd.Flags().GetString("drivers")
			rpmSigning, _ := cmd.Flags().GetBool("rpm-signing")
			efuseUSB, _ := cmd.Flags().GetBool("efuse-usb")

			if input == "" {
				return mokerror.New(mokerror.InputValidation, cliStage, "input", fmt.Errorf("--input is required"))
			}

			cfg, err := buildConfig(cmd, release)
			if err != nil {
				return err
			}
			cfg.RPMSigning = rpmSigning
			cfg.EfuseUSBMode = efuseUSB

			vmlinuz, initrd, err := extractKernelAndInitrd(cfg, input)
			if err != nil {
				return err
			}

			token := pipeline.NewToken(cfg.Context)
			report, err := pipeline.Run(cfg, token, pipeline.BuildRequest{
				SourceISO:     input,
				OutputISO:     output,
				Arch:          "x86_64",
				VolumeDate:    os.Getenv("SOURCE_DATE_EPOCH"),
				ModulesTreeAt: driversDir,
				CandidateDir:  driversDir,
				Vmlinuz:       vmlinuz,
				InitrdOrig:    initrd,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "built %s (sha256 %s)\n", report.ISO.OutputPath, report.ISO.SHA256)
			return nil
		},
	}
	c.Flags().String("release", "5.0", "Photon OS release (4.0, 5.0, 6.0)")
	c.Flags().String("input", "", "Source installer ISO")
	c.Flags().String("output", "", "Output ISO path")
	c.Flags().String("drivers", "", "Directory holding original installer RPMs and the GRUB module tree")
	c.Flags().Bool("rpm-signing", false, "Sign produced -mok RPMs with the configured GPG key")
	c.Flags().Bool("efuse-usb", false, "Build against the eFuse-USB boot chain variant")
	return c
}
