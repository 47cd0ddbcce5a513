/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/fatimage"
)

// dualPlacedFiles returns the exact file set spec.md requires to be
// byte-identical between efiboot.img and the ISO root tree.
func dualPlacedFiles(req Request, grubReal []byte) []fatimage.File {
	return []fatimage.File{
		{Path: "/" + filepath.Join(efiBootDir, NameBootX64), Data: req.Shim},
		{Path: "/" + filepath.Join(efiBootDir, NameGrubEfi), Data: req.GrubStub},
		{Path: "/" + filepath.Join(efiBootDir, NameGrubX64), Data: req.GrubStub},
		{Path: "/" + filepath.Join(efiBootDir, NameGrubReal), Data: grubReal},
		{Path: "/" + filepath.Join(efiBootDir, NameMokManager), Data: req.MokManager},
		{Path: "/" + NameMokManager, Data: req.MokManager},
		{Path: "/" + filepath.Join(efiBootDir, NameMokCert), Data: req.MokCertDER},
		{Path: "/" + NameMokCert, Data: req.MokCertDER},
		{Path: "/" + filepath.Join(efiBootDir, NameGrubCfg), Data: []byte(bootstrapGrubCfg)},
		{Path: "/grub/" + NameGrubCfg, Data: []byte(bootstrapGrubCfg)},
	}
}

// bootstrapGrubCfg is the ESP's tiny search-and-chain config: it finds
// the outer ISO by the kernel it ships at /isolinux/vmlinuz, then hands
// off to the full themed menu installed at /boot/grub2/grub.cfg.
const bootstrapGrubCfg = `search --no-floppy --file --set=root /isolinux/vmlinuz
set prefix=($root)/boot/grub2
configfile $prefix/grub.cfg
`

// BuildESP allocates and populates the rebuilt efiboot.img at espPath.
func BuildESP(cfg *config.Config, req Request, grubReal []byte, espPath string) error {
	return fatimage.Build(cfg, espPath, dualPlacedFiles(req, grubReal))
}
