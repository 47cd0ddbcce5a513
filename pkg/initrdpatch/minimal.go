/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package initrdpatch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const minimalOptionKey = "minimal"

// mokVariantSubstitutions maps an original package name to its MOK
// variant, per spec.md's packages_mok.json algorithm.
var mokVariantSubstitutions = map[string]string{
	"grub2-efi-image": "grub2-efi-image-mok",
	"shim-signed":     "shim-signed-mok",
	"linux":           "linux-mok",
}

type packageList struct {
	Packages []string `json:"packages"`
}

// ComputeMokPackages derives packages_mok.json's content from the
// original installer's "minimal" meta-package dependency set found
// inside originalInitrd, substituting every member that has a MOK
// variant and leaving every other member untouched.
func ComputeMokPackages(originalInitrd []byte) ([]byte, error) {
	raw, _, err := decompress(originalInitrd)
	if err != nil {
		return nil, err
	}
	a, err := readArchive(raw)
	if err != nil {
		return nil, err
	}

	optsRaw, ok := a.get(buildInstallOptsPath)
	if !ok {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, buildInstallOptsPath, errNotFound(buildInstallOptsPath))
	}
	opts, err := decodeOrderedOptions(optsRaw)
	if err != nil {
		return nil, mokerror.New(mokerror.PayloadMismatch, stage, buildInstallOptsPath, err)
	}
	minimal, ok := opts.vals[minimalOptionKey]
	if !ok {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, buildInstallOptsPath,
			fmt.Errorf("no %q install option", minimalOptionKey))
	}

	minimalPath := "installer/" + minimal.PackagesJSON
	minimalRaw, ok := a.get(minimalPath)
	if !ok {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, minimalPath, errNotFound(minimalPath))
	}
	var list packageList
	if err := json.Unmarshal(minimalRaw, &list); err != nil {
		return nil, mokerror.New(mokerror.PayloadMismatch, stage, minimalPath, err)
	}

	mokPackages := make([]string, 0, len(list.Packages))
	for _, pkg := range list.Packages {
		if mok, ok := mokVariantSubstitutions[pkg]; ok {
			mokPackages = append(mokPackages, mok)
		} else {
			mokPackages = append(mokPackages, pkg)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(packageList{Packages: mokPackages}); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, stage, packagesMokPath, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
