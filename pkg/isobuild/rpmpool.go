/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const rpmPoolStage = "isobuild-rpmpool"

// PopulateRPMPool copies every original RPM plus every built MokRpm
// into /RPMS/<arch>/ and regenerates repo metadata with createrepo_c,
// the modern replacement for the original Python createrepo that every
// current RPM-based distro ships — the teacher itself never builds an
// RPM repo (it consumes one), so this has no in-repo precedent beyond
// "shell to the tool that owns this file format", same posture as
// pkg/rpmpatch's rpmbuild/rpmsign calls.
func PopulateRPMPool(cfg *config.Config, rootDir, arch string, req Request) error {
	poolDir := filepath.Join(rootDir, "RPMS", arch)
	if err := cfg.Fs.MkdirAll(poolDir, 0o755); err != nil {
		return mokerror.New(mokerror.IsoWriteFailed, rpmPoolStage, poolDir, err)
	}

	for _, src := range req.OriginalRPMs {
		if err := copyFile(cfg, src, filepath.Join(poolDir, filepath.Base(src))); err != nil {
			return err
		}
	}
	for _, mok := range req.MokRpms {
		if err := copyFile(cfg, mok.OutputPath, filepath.Join(poolDir, filepath.Base(mok.OutputPath))); err != nil {
			return err
		}
	}

	out, err := cfg.Runner.RunContext(cfg.Context, "createrepo_c", "--update", poolDir)
	if err != nil {
		return mokerror.New(mokerror.IsoWriteFailed, rpmPoolStage, poolDir, errWithOutput(err, out))
	}
	return nil
}

func copyFile(cfg *config.Config, src, dst string) error {
	data, err := cfg.Fs.ReadFile(src)
	if err != nil {
		return mokerror.New(mokerror.OriginalMissing, rpmPoolStage, src, err)
	}
	if err := cfg.Fs.WriteFile(dst, data, 0o644); err != nil {
		return mokerror.New(mokerror.IsoWriteFailed, rpmPoolStage, dst, err)
	}
	return nil
}
