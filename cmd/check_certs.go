/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// NewCheckCertsCmd reports per-certificate expiry status under the
// keys-dir and exits 1 if any is warn or expired, per spec.md §6.
func NewCheckCertsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "check-certs",
		Short: "Report expiry status for every certificate under the keys-dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			warnDays, _ := cmd.Flags().GetInt("cert-warn")
			cfg, err := buildConfig(cmd, "")
			if err != nil {
				return err
			}

			statuses, err := keymanager.CheckExpiryWindow(cfg, time.Now(), time.Duration(warnDays)*24*time.Hour)
			if err != nil {
				return err
			}

			anyBad := false
			for _, s := range statuses {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.Status, s.Subject, s.NotAfter.Format(time.RFC3339), s.Path)
				if s.Status != keymanager.ExpiryOK {
					anyBad = true
				}
			}

			if anyBad {
				// spec.md §6 calls for exit 1 here specifically, not the
				// KeyFormat kind's usual IO exit code.
				err := mokerror.New(mokerror.KeyFormat, cliStage, cfg.Keys.Path, fmt.Errorf("one or more certificates are near or past expiry"))
				err.Code = mokerror.ExitValidation
				return err
			}
			return nil
		},
	}
	c.Flags().Int("cert-warn", 30, "Days before expiry to classify a certificate as warn")
	return c
}
