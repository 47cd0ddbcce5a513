/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/cleanstack"
	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const buildStage = "isobuild"

// Build runs the ISO Rewriter's five phases in order (they share the
// same output tree, so per spec.md's concurrency design they are
// sequential, unlike the RPM Patcher's per-variant fan-out that feeds
// req.MokRpms before this is ever called).
func Build(cfg *config.Config, req Request) (*Result, error) {
	cleanup := cleanstack.New()
	var err error
	defer func() { err = cleanup.Cleanup(err) }()

	workDir := filepath.Join(cfg.TmpDir, "isobuild")
	if mkErr := cfg.Fs.MkdirAll(workDir, 0o755); mkErr != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, buildStage, workDir, mkErr)
	}
	cleanup.Push(func() error { return cfg.Fs.RemoveAll(workDir) })

	// Phase A
	src, err := ExtractSource(cfg, req, workDir)
	if err != nil {
		return nil, err
	}

	// Phase B
	espPath := filepath.Join(src.RootDir, "boot", "grub2", "efiboot.img")
	if err = BuildESP(cfg, req, src.GrubReal, espPath); err != nil {
		return nil, err
	}

	// Phase C
	if _, err = RebuildRoot(cfg, req, src.RootDir, src.GrubReal); err != nil {
		return nil, err
	}

	// Phase D
	if err = PopulateRPMPool(cfg, src.RootDir, req.Arch, req); err != nil {
		return nil, err
	}

	// Phase E
	result, authorErr := Author(cfg, src.RootDir, src.VolumeID, req.VolumeDate, req.OutputISO)
	if authorErr != nil {
		err = authorErr
		return nil, err
	}

	return result, nil
}
