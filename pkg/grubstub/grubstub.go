/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package grubstub assembles the minimal MOK-signed GRUB EFI
// application that stands in for the installer's bootloader once shim
// hands off control. It shells to grub2-mkimage the way the teacher's
// live-ISO bootloader code does, then signs the result with
// pkg/authenticode.
package grubstub

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/authenticode"
	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/sbat"
)

const stage = "grub-stub-builder"

// coreModules is the fixed module set every stub links, regardless of
// policy. It deliberately never includes shim_lock.
var coreModules = []string{
	"normal", "search", "search_fs_file", "search_fs_uuid", "search_label",
	"configfile", "chain", "linux", "initrd", "fat", "iso9660",
	"part_gpt", "part_msdos", "efi_gop", "gfxterm", "font",
	"loadenv", "echo", "test", "regexp",
}

// usbModules is added only when eFuse-USB mode is enabled.
var usbModules = []string{"usb", "usbms"}

const forbiddenModule = "shim_lock"

// StubPair is the two byte-identical copies of the built stub,
// addressed by the filenames the shim/firmware expect.
type StubPair struct {
	GrubEfi    []byte
	GrubX64Efi []byte
}

// Build runs the full stub-assembly algorithm: synthesise config,
// invoke grub2-mkimage, verify the module set, sign with the MOK, and
// produce two identical copies.
func Build(cfg *config.Config, mok *keymanager.MokKeypair, grubModuleDir string, efuseUSBMode bool) (*StubPair, error) {
	grubCfgText, err := RenderConfig(cfg.Release, efuseUSBMode)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(cfg.TmpDir, "grub-stub.cfg")
	if err := cfg.Fs.WriteFile(cfgPath, grubCfgText, 0o644); err != nil {
		return nil, mokerror.New(mokerror.StubAssemblyFailed, stage, cfgPath, err)
	}

	modules := append([]string{}, coreModules...)
	if efuseUSBMode {
		modules = append(modules, usbModules...)
	}

	outPath := filepath.Join(cfg.TmpDir, "grub-stub.efi")
	args := []string{
		"-O", "x86_64-efi",
		"-p", "/EFI/BOOT",
		"-d", grubModuleDir,
		"-o", outPath,
		"-c", cfgPath,
	}
	args = append(args, modules...)

	out, err := cfg.Runner.RunContext(cfg.Context, "grub2-mkimage", args...)
	if err != nil {
		return nil, mokerror.New(mokerror.StubAssemblyFailed, stage, outPath, fmt.Errorf("grub2-mkimage failed: %w: %s", err, out))
	}

	unsigned, err := cfg.Fs.ReadFile(outPath)
	if err != nil {
		return nil, mokerror.New(mokerror.StubAssemblyFailed, stage, outPath, err)
	}
	if err := verifyAssembledStub(unsigned); err != nil {
		return nil, err
	}

	keyPath := filepath.Join(cfg.TmpDir, "mok-sign.key")
	certPath := filepath.Join(cfg.TmpDir, "mok-sign.crt")
	if err := cfg.Fs.WriteFile(keyPath, mok.PrivatePEM, 0o600); err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, keyPath, err)
	}
	if err := cfg.Fs.WriteFile(certPath, mok.CertPEM, 0o644); err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, certPath, err)
	}

	signedPath := filepath.Join(cfg.TmpDir, "grub-stub-signed.efi")
	if err := authenticode.Sign(cfg, outPath, keyPath, certPath, signedPath); err != nil {
		return nil, err
	}

	signed, err := cfg.Fs.ReadFile(signedPath)
	if err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, signedPath, err)
	}

	signers, err := authenticode.SignersFromBytes(signed, signedPath)
	if err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, signedPath, err)
	}
	verified := false
	for _, s := range signers {
		if s.Equal(mok.Cert) {
			verified = true
		}
	}
	if !verified {
		return nil, mokerror.New(mokerror.SignFailed, stage, signedPath, fmt.Errorf("signed stub does not verify against MOK certificate"))
	}

	return &StubPair{
		GrubEfi:    append([]byte{}, signed...),
		GrubX64Efi: append([]byte{}, signed...),
	}, nil
}

// verifyAssembledStub ensures no loaded module is shim_lock and that
// the assembler's own .sbat section is present, per the post-assembly
// check that catches an upstream GRUB regression before it's signed.
func verifyAssembledStub(peData []byte) error {
	vec, err := sbat.Read(peData)
	if err != nil {
		return mokerror.New(mokerror.StubContaminated, stage, "", fmt.Errorf("missing .sbat in assembled stub: %w", err))
	}
	if _, ok := vec.Generation("grub"); !ok {
		return mokerror.New(mokerror.StubContaminated, stage, "", fmt.Errorf("assembled stub has no grub SBAT record"))
	}

	// The assembler only reports the module list it statically linked
	// through its own diagnostics, not a recoverable structure in the
	// output binary; the invariant this protects is enforced by never
	// passing shim_lock as a requested module (see Build's modules
	// slice) and is double-checked here against the raw bytes, since a
	// linker default pulling it in unexpectedly is exactly the
	// regression this check exists to catch.
	if strings.Contains(string(peData), forbiddenModule) {
		return mokerror.New(mokerror.StubContaminated, stage, "", fmt.Errorf("assembled stub references forbidden module %q", forbiddenModule))
	}
	return nil
}
