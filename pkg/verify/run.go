/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package verify

import (
	"crypto/x509"
	"path/filepath"
	"sync"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/fatimage"
	"github.com/vmware/photon-mokboot/pkg/loopback"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "verify"

// Options carries the extra context a full verification run needs
// beyond the mounted trees themselves: the MOK certificate the build
// claims to have used, and the RPM set the pool is expected to carry.
type Options struct {
	MokCertDER      []byte
	Arch            string
	ExpectedMokRpms []string
}

// Run mounts isoPath read-only, locates its efiboot.img inside the
// extracted tree, mounts that too, and runs every check from spec.md's
// Verifier in parallel since none of them mutate shared state — each
// reads its own slice of the two mounted trees independently.
func Run(cfg *config.Config, isoPath string, opts Options) (Report, error) {
	isoDev, err := loopback.Attach(cfg.Runner, isoPath)
	if err != nil {
		return Report{}, mokerror.New(mokerror.IsoUnreadable, stage, isoPath, err)
	}
	defer isoDev.Close()

	isoMount := filepath.Join(cfg.TmpDir, "verify-iso-root")
	if err := cfg.Fs.MkdirAll(isoMount, 0o755); err != nil {
		return Report{}, mokerror.New(mokerror.IsoUnreadable, stage, isoMount, err)
	}
	if err := isoDev.Mount(isoMount, "iso9660", []string{"ro"}); err != nil {
		return Report{}, err
	}
	defer isoDev.CleanClose()

	t := tree{cfg: cfg, isoRoot: isoMount}

	if len(opts.MokCertDER) > 0 {
		cert, certErr := x509.ParseCertificate(opts.MokCertDER)
		if certErr == nil {
			t.mokCert = cert
		}
	}

	espImagePath := filepath.Join(isoMount, "boot", "grub2", "efiboot.img")
	if _, statErr := cfg.Fs.Stat(espImagePath); statErr == nil {
		espMount := filepath.Join(cfg.TmpDir, "verify-esp-root")
		if mkErr := cfg.Fs.MkdirAll(espMount, 0o755); mkErr == nil {
			if espDev, mountErr := fatimage.MountForVerification(cfg, espImagePath, espMount); mountErr == nil {
				defer espDev.CleanClose()
				t.espRoot = espMount
			}
		}
	}

	findings := runChecks(t, opts)
	return Report{ISOPath: isoPath, Findings: findings}, nil
}

func runChecks(t tree, opts Options) []Finding {
	type indexed struct {
		i int
		f Finding
	}

	checks := []func(tree) Finding{
		checkMokManagerRoot,
		checkEfiBootQuad,
		checkShimSbatAndSigner,
		checkGrubStubSignature,
		checkDualPlacement,
		checkMokCertDER,
		func(t tree) Finding { return checkRepodataListsMokRpms(t, opts.Arch, opts.ExpectedMokRpms) },
		checkPatchedInitrd,
	}

	results := make([]Finding, len(checks))
	var wg sync.WaitGroup
	out := make(chan indexed, len(checks))
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check func(tree) Finding) {
			defer wg.Done()
			out <- indexed{i: i, f: check(t)}
		}(i, check)
	}
	wg.Wait()
	close(out)
	for item := range out {
		results[item.i] = item.f
	}
	return results
}
