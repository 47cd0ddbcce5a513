/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/internal/version"
)

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "photon-mokboot %s (%s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
			return nil
		},
	}
}
