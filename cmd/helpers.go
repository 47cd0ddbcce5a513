/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/pipeline"
	"github.com/vmware/photon-mokboot/pkg/types"
)

// buildConfig assembles a *config.Config the way every subcommand
// needs it: real filesystem, a GracefulRunner honoring spec.md §5's
// SIGTERM-then-SIGKILL cancellation policy, the keys-dir flag, and
// TMPDIR from the environment. SOURCE_DATE_EPOCH is read by build-iso
// itself, not here.
func buildConfig(cmd *cobra.Command, releaseFlag string) (*config.Config, error) {
	logger := types.NewLogger()
	keysDir, err := cmd.Flags().GetString("keys-dir")
	if err != nil || keysDir == "" {
		return nil, mokerror.New(mokerror.InputValidation, "cli", "keys-dir", fmt.Errorf("--keys-dir is required"))
	}

	tmpDir := os.Getenv("TMPDIR")
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	cfg := config.New(
		config.WithLogger(logger),
		config.WithRunner(&pipeline.GracefulRunner{Logger: logger, Grace: 5 * time.Second}),
		config.WithKeysDir(keysDir),
		config.WithRelease(releaseFlag),
	)
	cfg.TmpDir = tmpDir
	cfg.Context = context.Background()
	return cfg, nil
}
