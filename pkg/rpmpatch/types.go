/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rpmpatch clones the three installer RPMs that carry
// boot-chain binaries (shim, GRUB stub, kernel) into MOK-signed "-mok"
// variants, preserving the original's Provides/Conflicts relationship
// and, for the kernel package, its modules' PKCS#7 signatures.
package rpmpatch

import "github.com/vmware/photon-mokboot/pkg/keymanager"

// Variant is the closed set of MOK RPM kinds; each carries its own
// payload-rewrite rule but shares the discover/extract/spec/rebuild
// workflow.
type Variant int

const (
	VariantShim Variant = iota
	VariantGrubStub
	VariantLinux
)

func (v Variant) String() string {
	switch v {
	case VariantShim:
		return "shim-signed-mok"
	case VariantGrubStub:
		return "grub2-efi-image-mok"
	case VariantLinux:
		return "linux-mok"
	default:
		return "unknown"
	}
}

// ProvidedPath is the file path used to discover the original RPM for
// each variant, per the "resolve by path, not version string" rule.
func (v Variant) ProvidedPath() string {
	switch v {
	case VariantShim:
		return "/boot/efi/EFI/BOOT/bootx64.efi"
	case VariantGrubStub:
		return "/boot/efi/EFI/BOOT/grubx64.efi"
	case VariantLinux:
		return "/boot/vmlinuz-*"
	default:
		return ""
	}
}

// Inputs bundles the signed artifacts a rewrite needs; only the fields
// relevant to the variant being rewritten are consulted.
type Inputs struct {
	Shim          []byte
	MokManager    []byte
	MokManagerAt  string
	GrubStub      []byte
	Vmlinuz       []byte
	ModulesTreeAt string
	Mok           *keymanager.MokKeypair
}

// Request describes one variant rewrite.
type Request struct {
	Variant       Variant
	CandidateDir  string
	Inputs        Inputs
	Sign          bool
	GpgKeyring    string
	GpgIdentity   string
}

// Result is the produced package plus the facts the pipeline log and
// the verifier care about.
type Result struct {
	Variant     Variant
	OutputPath  string
	OriginalRPM string
	Provides    string
	Signed      bool
}
