/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/verify"
)

// NewDiagnoseCmd runs the Verifier's checks against an arbitrary ISO
// and prints a structured report, per spec.md §6's diagnose action.
func NewDiagnoseCmd() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "diagnose <iso>",
		Short: "Run the boot-chain verification checks against an ISO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, "")
			if err != nil {
				return err
			}

			report, err := verify.Run(cfg, args[0], verify.Options{})
			if err != nil {
				return err
			}

			if asJSON {
				data, marshalErr := json.MarshalIndent(report, "", "  ")
				if marshalErr != nil {
					return mokerror.New(mokerror.PayloadMismatch, cliStage, args[0], marshalErr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				for _, f := range report.Findings {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %s\n", f.Status, f.Check, f.Detail)
				}
			}

			if !report.OK() {
				return mokerror.New(mokerror.VerifyFailed, cliStage, args[0], fmt.Errorf("one or more checks failed"))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	return c
}
