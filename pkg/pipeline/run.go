/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline sequences the Key Manager, Shim Provider, GRUB Stub
// Builder, RPM Patcher and ISO Rewriter into one build, and the
// Verifier into a diagnose run, enforcing spec.md §5's concurrency and
// resource rules: sequential stages at the top, a bounded worker pool
// for independent RPM rewrites, a cancellation token checked between
// stages and workers, and a pidfile guarding exclusive scratch-root
// ownership.
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/grubstub"
	"github.com/vmware/photon-mokboot/pkg/initrdpatch"
	"github.com/vmware/photon-mokboot/pkg/isobuild"
	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
	"github.com/vmware/photon-mokboot/pkg/shim"
	"github.com/vmware/photon-mokboot/pkg/verify"
)

// BuildRequest is everything build-iso needs beyond what cfg already
// carries (keys-dir, runner, filesystem).
type BuildRequest struct {
	SourceISO     string
	OutputISO     string
	Arch          string
	VolumeDate    string
	VendorGrubURL string
	ModulesTreeAt string
	CandidateDir  string // directory holding the original installer RPMs
	Vmlinuz       []byte
	InitrdOrig    []byte
	OriginalRPMs  []string
	Sign          bool
	GpgKeyring    string
	GpgIdentity   string
}

// BuildReport is what build-iso returns: the rewritten ISO plus the
// verification findings run against it before returning control to
// the caller.
type BuildReport struct {
	ISO    isobuild.Result
	Verify verify.Report
}

// Run executes one full build: sequential key/shim/stub assembly,
// parallel RPM variant rewrites, sequential ISO rewrite, and a final
// parallel verification pass over the output. The scratch root under
// cfg.TmpDir is claimed exclusively for the duration of the call.
func Run(cfg *config.Config, token *Token, req BuildRequest) (*BuildReport, error) {
	release, err := AcquireScratchLock(cfg, cfg.TmpDir)
	if err != nil {
		return nil, err
	}
	defer release()

	if token.Cancelled() {
		return nil, token.Err()
	}

	mok, err := keymanager.EnsureMok(cfg, "photon-mokboot", cfg.KeyBits, cfg.MokValidityDays)
	if err != nil {
		return nil, err
	}

	shimBlob, mokManagerBlob, err := shim.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	if _, err := shim.Validate(shimBlob); err != nil {
		return nil, err
	}

	if token.Cancelled() {
		return nil, token.Err()
	}

	stub, err := grubstub.Build(cfg, mok, req.ModulesTreeAt, cfg.EfuseUSBMode)
	if err != nil {
		return nil, err
	}

	if token.Cancelled() {
		return nil, token.Err()
	}

	rpmRequests := []rpmpatch.Request{
		{
			Variant:      rpmpatch.VariantShim,
			CandidateDir: req.CandidateDir,
			Sign:         req.Sign,
			GpgKeyring:   req.GpgKeyring,
			GpgIdentity:  req.GpgIdentity,
			Inputs: rpmpatch.Inputs{
				Shim:         shimBlob.Data,
				MokManager:   mokManagerBlob.Data,
				MokManagerAt: shim.MokManagerSearchPath(shimBlob),
				Mok:          mok,
			},
		},
		{
			Variant:      rpmpatch.VariantGrubStub,
			CandidateDir: req.CandidateDir,
			Sign:         req.Sign,
			GpgKeyring:   req.GpgKeyring,
			GpgIdentity:  req.GpgIdentity,
			Inputs: rpmpatch.Inputs{
				GrubStub: stub.GrubEfi,
				Mok:      mok,
			},
		},
		{
			Variant:      rpmpatch.VariantLinux,
			CandidateDir: req.CandidateDir,
			Sign:         req.Sign,
			GpgKeyring:   req.GpgKeyring,
			GpgIdentity:  req.GpgIdentity,
			Inputs: rpmpatch.Inputs{
				Vmlinuz:       req.Vmlinuz,
				ModulesTreeAt: req.ModulesTreeAt,
				Mok:           mok,
			},
		},
	}

	rpmResults, err := RunRPMWorkers(cfg, token, rpmRequests)
	if err != nil {
		return nil, err
	}

	if token.Cancelled() {
		return nil, token.Err()
	}

	packagesMok, err := initrdpatch.ComputeMokPackages(req.InitrdOrig)
	if err != nil {
		return nil, err
	}

	isoReq := isobuild.Request{
		SourceISO:     req.SourceISO,
		OutputISO:     req.OutputISO,
		Arch:          req.Arch,
		VolumeDate:    req.VolumeDate,
		Shim:          shimBlob.Data,
		MokManager:    mokManagerBlob.Data,
		GrubStub:      stub.GrubEfi,
		MokCertDER:    mok.CertDER,
		Vmlinuz:       req.Vmlinuz,
		InitrdOrig:    req.InitrdOrig,
		PackagesMok:   packagesMok,
		ModulesTreeAt: req.ModulesTreeAt,
		VendorGrubURL: req.VendorGrubURL,
		CandidateDir:  req.CandidateDir,
		OriginalRPMs:  req.OriginalRPMs,
		MokRpms:       rpmResults,
	}

	isoResult, err := isobuild.Build(cfg, isoReq)
	if err != nil {
		return nil, err
	}

	if token.Cancelled() {
		return nil, token.Err()
	}

	var mokRpmNames []string
	for _, r := range rpmResults {
		mokRpmNames = append(mokRpmNames, filepath.Base(r.OutputPath))
	}

	report, err := verify.Run(cfg, isoResult.OutputPath, verify.Options{
		MokCertDER:      mok.CertDER,
		Arch:            req.Arch,
		ExpectedMokRpms: mokRpmNames,
	})
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		return nil, mokerror.New(mokerror.VerifyFailed, pipelineStage, isoResult.OutputPath,
			fmt.Errorf("%d finding(s) failed verification", countFailures(report)))
	}

	inputDigest, err := keymanager.DigestFile(cfg, req.SourceISO)
	if err != nil {
		return nil, err
	}
	outputDigest, err := keymanager.DigestFile(cfg, isoResult.OutputPath)
	if err != nil {
		return nil, err
	}
	if err := keymanager.AppendHistory(cfg, keymanager.HistoryEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		InputSHA256:  inputDigest,
		OutputSHA256: outputDigest,
		MokSerial:    mok.Cert.SerialNumber.String(),
		MokSHA256:    keymanager.Fingerprint(mok),
	}); err != nil {
		return nil, err
	}

	return &BuildReport{ISO: *isoResult, Verify: report}, nil
}

func countFailures(r verify.Report) int {
	n := 0
	for _, f := range r.Findings {
		if f.Status == verify.StatusFail {
			n++
		}
	}
	return n
}
