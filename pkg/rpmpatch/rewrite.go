/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"fmt"
	"path"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// findBySuffix locates the first entry whose name ends with suffix,
// tolerating the leading "./" rpm2cpio prepends to every path.
func findBySuffix(a *cpioarchive.Archive, suffix string) int {
	for i, e := range a.Entries {
		if strings.HasSuffix(e.Name, suffix) {
			return i
		}
	}
	return -1
}

// rewrite applies the per-variant payload replacement rule described
// in the RPM Patcher's step 3 (spec.md §4.4): each variant rewrites a
// disjoint, fixed set of payload files.
func rewrite(cfg *config.Config, v Variant, a *cpioarchive.Archive, in Inputs) error {
	switch v {
	case VariantShim:
		return rewriteShim(a, in)
	case VariantGrubStub:
		return rewriteGrubStub(a, in)
	case VariantLinux:
		return rewriteLinux(cfg, a, in)
	default:
		return mokerror.New(mokerror.PayloadMismatch, stage, "", fmt.Errorf("unknown variant %d", v))
	}
}

func rewriteShim(a *cpioarchive.Archive, in Inputs) error {
	i := findBySuffix(a, "/EFI/BOOT/bootx64.efi")
	if i < 0 {
		return mokerror.New(mokerror.OriginalMissing, stage, "EFI/BOOT/bootx64.efi", fmt.Errorf("shim payload not found in original RPM"))
	}
	a.Entries[i].Data = in.Shim

	mmPath := in.MokManagerAt
	if mmPath == "" {
		mmPath = "./MokManager.efi"
	}
	if j := a.Find(mmPath); j >= 0 {
		a.Entries[j].Data = in.MokManager
	} else {
		a.Insert(mmPath, in.MokManager)
	}
	return nil
}

func rewriteGrubStub(a *cpioarchive.Archive, in Inputs) error {
	replaced := false
	for i, e := range a.Entries {
		base := path.Base(e.Name)
		if base == "grubx64.efi" || base == "grub.efi" {
			a.Entries[i].Data = in.GrubStub
			replaced = true
		}
	}
	if !replaced {
		return mokerror.New(mokerror.OriginalMissing, stage, "grubx64.efi", fmt.Errorf("grub payload not found in original RPM"))
	}
	return nil
}

func rewriteLinux(cfg *config.Config, a *cpioarchive.Archive, in Inputs) error {
	i := findVmlinuz(a)
	if i < 0 {
		return mokerror.New(mokerror.OriginalMissing, stage, "boot/vmlinuz-*", fmt.Errorf("vmlinuz payload not found in original RPM"))
	}
	a.Entries[i].Data = in.Vmlinuz

	if in.ModulesTreeAt == "" {
		return nil
	}
	for idx, e := range a.Entries {
		if !strings.HasSuffix(e.Name, ".ko") && !strings.HasSuffix(e.Name, ".ko.xz") && !strings.HasSuffix(e.Name, ".ko.gz") {
			continue
		}
		replacement := path.Join(in.ModulesTreeAt, path.Base(e.Name))
		data, err := cfg.Fs.ReadFile(replacement)
		if err != nil {
			return mokerror.New(mokerror.OriginalMissing, stage, replacement, fmt.Errorf("MOK-signed module not prebuilt: %w", err))
		}
		a.Entries[idx].Data = data
	}
	return nil
}

func findVmlinuz(a *cpioarchive.Archive) int {
	for i, e := range a.Entries {
		base := path.Base(e.Name)
		if strings.HasPrefix(base, "vmlinuz-") || base == "vmlinuz" {
			return i
		}
	}
	return -1
}
