/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/initrdpatch"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const rootStage = "isobuild-root"

// mainGrubCfg is the kickstart-free five-option themed menu installed
// at /boot/grub2/grub.cfg, reached once the ESP's bootstrapGrubCfg (or
// the stub's own embedded config) configfiles into it.
const mainGrubCfg = `set default=0
set timeout=10
set timeout_style=menu
insmod all_video
insmod gfxterm
terminal_output gfxterm

menuentry "Install" {
	linuxefi /isolinux/vmlinuz install
	initrdefi /isolinux/initrd.img
}
menuentry "Install (text mode)" {
	linuxefi /isolinux/vmlinuz install text
	initrdefi /isolinux/initrd.img
}
menuentry "Rescue shell" {
	linuxefi /isolinux/vmlinuz rescue
	initrdefi /isolinux/initrd.img
}
menuentry "Chainload original bootloader" {
	chainloader /EFI/BOOT/grubx64_real.efi
}
menuentry "Reboot" {
	reboot
}
`

// RebuildRoot mirrors the dual-placed files into the ISO root tree,
// installs the main themed grub.cfg, copies the MOK-signed kernel to
// /isolinux/vmlinuz, and patches+recompresses the installer initrd,
// returning the patched initrd's resolved compression algorithm so
// Phase E's author step can report it if needed.
func RebuildRoot(cfg *config.Config, req Request, rootDir string, grubReal []byte) (*initrdpatch.Result, error) {
	for _, f := range dualPlacedFiles(req, grubReal) {
		// dualPlacedFiles carries the bootstrap grub.cfg for /EFI/BOOT
		// and /grub; /boot/grub2/grub.cfg gets the main installer menu
		// (mainGrubCfg) below instead.
		dest := filepath.Join(rootDir, f.Path)
		if err := cfg.Fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, dest, err)
		}
		if err := cfg.Fs.WriteFile(dest, f.Data, 0o644); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, dest, err)
		}
	}

	grubDir := filepath.Join(rootDir, "boot", "grub2")
	if err := cfg.Fs.MkdirAll(grubDir, 0o755); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, grubDir, err)
	}
	if err := cfg.Fs.WriteFile(filepath.Join(grubDir, NameGrubCfg), []byte(mainGrubCfg), 0o644); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, grubDir, err)
	}

	isolinuxDir := filepath.Join(rootDir, "isolinux")
	if err := cfg.Fs.MkdirAll(isolinuxDir, 0o755); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, isolinuxDir, err)
	}
	vmlinuzPath := filepath.Join(isolinuxDir, "vmlinuz")
	if err := cfg.Fs.WriteFile(vmlinuzPath, req.Vmlinuz, 0o644); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, vmlinuzPath, err)
	}

	patched, err := initrdpatch.Patch(req.InitrdOrig, req.PackagesMok)
	if err != nil {
		return nil, err
	}
	initrdPath := filepath.Join(isolinuxDir, "initrd.img")
	if err := cfg.Fs.WriteFile(initrdPath, patched.Data, 0o644); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, rootStage, initrdPath, err)
	}

	return patched, nil
}
