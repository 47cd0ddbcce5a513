/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package isobuild is the ISO Rewriter: it extracts a source installer
// ISO, rebuilds its EFI System Partition image, mirrors the MOK boot
// chain into the ISO root tree, patches the installer initrd, populates
// the RPM pool, and re-authors a hybrid BIOS+UEFI+isohybrid ISO.
// Grounded on the teacher's pkg/action/build-iso.go ISORun staging-dir
// pipeline (rootDir/uefiDir/isoDir built up in temp, then burned with
// xorriso) generalized from authoring a fresh live ISO to rewriting an
// existing installer one.
package isobuild

import "github.com/vmware/photon-mokboot/pkg/rpmpatch"

// Request carries every input the ISO Rewriter needs across its five
// phases.
type Request struct {
	SourceISO  string
	OutputISO  string
	Arch       string
	VolumeDate string // SOURCE_DATE_EPOCH in xorriso's -volume_date form, for idempotent reruns

	Shim          []byte
	MokManager    []byte
	GrubStub      []byte
	MokCertDER    []byte
	Vmlinuz       []byte
	InitrdOrig    []byte
	PackagesMok   []byte
	ModulesTreeAt string

	VendorGrubURL string // network fallback source when the source ISO lacks grubx64_real.efi
	CandidateDir  string // directory of original installer RPMs, tried before VendorGrubURL

	OriginalRPMs []string
	MokRpms      []rpmpatch.Result
}

// Result is the rewritten ISO's final location and checksum.
type Result struct {
	OutputPath string
	SHA256     string
}

// Dual-placed filenames (data model's "dual-placement rule"): every one
// of these must be byte-identical between the ISO root tree and
// efiboot.img.
const (
	NameBootX64    = "BOOTX64.EFI"
	NameGrubEfi    = "grub.efi"
	NameGrubX64    = "grubx64.efi"
	NameGrubReal   = "grubx64_real.efi"
	NameMokManager = "MokManager.efi"
	NameMokCert    = "ENROLL_THIS_KEY_IN_MOKMANAGER.cer"
	NameGrubCfg    = "grub.cfg"
)

const efiBootDir = "EFI/BOOT"
