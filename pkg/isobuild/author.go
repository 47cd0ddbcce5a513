/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const authorStage = "isobuild-author"

const (
	isoBootCatalog = "/boot/boot.catalog"
	isolinuxBin    = "isolinux/isolinux.bin"
	espRelPath     = "boot/grub2/efiboot.img"
)

// xorrisoBootArgs mirrors the teacher's live.XorrisoBooloaderArgs,
// generalized to emit BOTH the BIOS and UEFI boot_image stanzas in one
// call (the teacher builds one firmware's ISO at a time; a rebuilt
// installer ISO must boot both) plus the GPT appended-partition
// stanzas that make the result isohybrid USB-write-through bootable.
func xorrisoBootArgs() []string {
	return []string{
		"-boot_image", "grub", fmt.Sprintf("bin_path=/%s", isolinuxBin),
		"-boot_image", "grub", "grub2_boot_info=on",
		"-boot_image", "any", fmt.Sprintf("cat_path=%s", isoBootCatalog),
		"-boot_image", "any", "cat_hidden=on",
		"-boot_image", "any", "boot_info_table=on",
		"-boot_image", "any", "platform_id=0x00",
		"-boot_image", "any", "next",
		"-boot_image", "any", fmt.Sprintf("efi_path=--interval:local_fs:/%s::", espRelPath),
		"-boot_image", "any", "platform_id=0xef",
		"-boot_image", "any", "appended_part_as=gpt",
		"-boot_image", "any", "partition_offset=16",
		"-as", "mkisofs",
		"-isohybrid-gpt-basdat",
	}
}

// Author re-authors the hybrid ISO from rootDir with xorriso, grounded
// on the teacher's burnISO/XorrisoBooloaderArgs (same -volid/-outdev/
// -map invocation shape, generalized to emit both firmwares' boot_image
// stanzas and the isohybrid GPT flag in a single pass instead of the
// teacher's one-firmware-per-build branch). volumeDate, when non-empty,
// is passed to -volume_date so reruns with the same inputs and the same
// SOURCE_DATE_EPOCH produce byte-identical output modulo nothing.
func Author(cfg *config.Config, rootDir, volumeID, volumeDate, outputISO string) (*Result, error) {
	args := []string{
		"-volid", volumeID,
		"-padding", "0",
		"-outdev", outputISO,
		"-map", rootDir, "/",
		"-chmod", "0755", "--",
	}
	args = append(args, xorrisoBootArgs()...)
	if volumeDate != "" {
		args = append(args, "-volume_date", "all", volumeDate)
	}

	out, err := cfg.Runner.RunContext(cfg.Context, "xorriso", args...)
	if err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, authorStage, outputISO, errWithOutput(err, out))
	}

	f, err := cfg.Fs.Open(outputISO)
	if err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, authorStage, outputISO, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, authorStage, outputISO, err)
	}

	return &Result{OutputPath: outputISO, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
