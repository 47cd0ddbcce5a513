/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// NewRootCmd builds the root command and registers every subcommand,
// the same composition style as the teacher's NewRootCmd: persistent
// flags bound through viper, child commands attached before Execute.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "photon-mokboot",
		Short: "Rebuild a Photon OS installer ISO for UEFI Secure Boot via a Machine Owner Key",
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug output")
	root.PersistentFlags().String("keys-dir", "", "Directory holding the MOK keypair and signed boot assets")
	_ = viper.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("keys-dir", root.PersistentFlags().Lookup("keys-dir"))

	root.AddCommand(
		NewBuildISOCmd(),
		NewDiagnoseCmd(),
		NewCheckCertsCmd(),
		NewGenerateKeysCmd(),
		NewCleanCmd(),
		NewCreateEfuseUSBCmd(),
		NewVersionCmd(),
	)
	return root
}

var rootCmd = NewRootCmd()

// Execute runs the root command, translating a MokError into its exit
// code per spec.md §6 and falling back to exit 1 for anything else.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var mokErr *mokerror.MokError
		if errors.As(err, &mokErr) {
			os.Exit(mokErr.ExitCode())
		}
		os.Exit(1)
	}
}
