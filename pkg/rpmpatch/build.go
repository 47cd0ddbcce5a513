/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// Build runs the full per-variant workflow: discover the original RPM,
// extract its payload, apply the variant's rewrite rule, verify module
// signatures survive for linux-mok, generate a spec, rebuild, and
// optionally sign.
func Build(cfg *config.Config, req Request) (*Result, error) {
	originalRPM, err := DiscoverOriginal(cfg, req.CandidateDir, req.Variant.ProvidedPath())
	if err != nil {
		return nil, err
	}

	provides, err := Provides(cfg, originalRPM)
	if err != nil {
		return nil, err
	}
	name, version, release, err := NameVersionRelease(cfg, originalRPM)
	if err != nil {
		return nil, err
	}

	payload, err := extractPayload(cfg, originalRPM)
	if err != nil {
		return nil, err
	}

	if err := rewrite(cfg, req.Variant, payload, req.Inputs); err != nil {
		return nil, err
	}
	if req.Variant == VariantLinux {
		if err := probeModuleSignatures(payload); err != nil {
			return nil, err
		}
	}

	scratch := filepath.Join(cfg.TmpDir, req.Variant.String())
	buildRoot := filepath.Join(scratch, "buildroot")
	if err := cfg.Fs.MkdirAll(buildRoot, 0o755); err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, buildRoot, err)
	}
	for _, e := range payload.Entries {
		rel := buildRootPath(e.Name)
		if rel == "" || rel == "/" {
			continue
		}
		dest := filepath.Join(buildRoot, rel)
		if err := cfg.Fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, mokerror.New(mokerror.KeyIo, stage, dest, err)
		}
		perm, parseErr := strconv.ParseUint(modeString(e.Mode), 8, 32)
		if parseErr != nil {
			perm = 0644
		}
		if err := cfg.Fs.WriteFile(dest, e.Data, os.FileMode(perm)); err != nil {
			return nil, mokerror.New(mokerror.KeyIo, stage, dest, err)
		}
	}

	specText := renderSpec(specParams{
		Name:     name,
		Version:  version,
		Release:  bumpRelease(release),
		Provides: provides,
		Conflict: fmt.Sprintf("%s = %s-%s", name, version, release),
		Files:    manifestPaths(payload),
		NoStrip:  req.Variant == VariantLinux,
	})
	specPath := filepath.Join(scratch, req.Variant.String()+".spec")
	if err := cfg.Fs.WriteFile(specPath, []byte(specText), 0o644); err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, specPath, err)
	}

	rpmDir := filepath.Join(scratch, "RPMS")
	out, err := cfg.Runner.RunContext(cfg.Context, "rpmbuild",
		"-bb",
		"--buildroot", buildRoot,
		"--define", "_topdir "+scratch,
		"--define", "_rpmdir "+rpmDir,
		"--define", "_build_id_links none",
		specPath,
	)
	if err != nil {
		return nil, mokerror.New(mokerror.PayloadMismatch, stage, specPath, errWithOutput(err, out))
	}

	outputPath, err := locateBuiltRPM(cfg, rpmDir, name)
	if err != nil {
		return nil, err
	}

	signed := false
	if req.Sign {
		if err := signRPM(cfg, outputPath, req.GpgKeyring, req.GpgIdentity); err != nil {
			return nil, err
		}
		signed = true
	}

	return &Result{
		Variant:     req.Variant,
		OutputPath:  outputPath,
		OriginalRPM: originalRPM,
		Provides:    provides,
		Signed:      signed,
	}, nil
}

// locateBuiltRPM walks rpmbuild's per-arch output directories for the
// package it just produced; rpmbuild places the result under
// _rpmdir/<arch>/<name>-mok-<version>-<release>.<arch>.rpm.
func locateBuiltRPM(cfg *config.Config, rpmDir, origName string) (string, error) {
	arches, err := cfg.Fs.ReadDir(rpmDir)
	if err != nil {
		return "", mokerror.New(mokerror.PayloadMismatch, stage, rpmDir, err)
	}
	wantPrefix := origName + "-mok-"
	for _, arch := range arches {
		if !arch.IsDir() {
			continue
		}
		archDir := filepath.Join(rpmDir, arch.Name())
		files, err := cfg.Fs.ReadDir(archDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if strings.HasPrefix(f.Name(), wantPrefix) {
				return filepath.Join(archDir, f.Name()), nil
			}
		}
	}
	return "", mokerror.New(mokerror.PayloadMismatch, stage, rpmDir, fmt.Errorf("rpmbuild did not produce %s*", wantPrefix))
}
