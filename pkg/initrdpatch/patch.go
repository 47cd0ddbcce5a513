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

const (
	packagesMokPath       = "installer/packages_mok.json"
	buildInstallOptsPath  = "installer/build_install_options_all.json"
	kernelFlavorTablePath = "installer/kernel_flavors.json"

	mokOptionKey   = "mok"
	mokOptionTitle = "1. Photon MOK Secure Boot"

	MokKernelFlavor = "linux-mok"
	mokFlavorLabel  = "MOK Secure Boot"
)

// Result carries both the recompressed initrd bytes and the resolved
// algorithm, so callers that need to report it (e.g. the verifier) don't
// have to re-sniff the output.
type Result struct {
	Data      []byte
	Algorithm Algorithm
}

// Patch applies the three installer-initrd edits: add packages_mok.json,
// prepend a "mok" entry to build_install_options_all.json, and register
// linux-mok in the kernel-flavor table. packagesMok is the pre-rendered
// MOK package manifest (the ISO Rewriter computes its contents from the
// minimal meta-package's dependency set); Patch only places it.
func Patch(originalInitrd []byte, packagesMok []byte) (*Result, error) {
	raw, alg, err := decompress(originalInitrd)
	if err != nil {
		return nil, err
	}

	a, err := readArchive(raw)
	if err != nil {
		return nil, err
	}

	if err := patchPackagesMok(a, packagesMok); err != nil {
		return nil, err
	}
	if err := patchInstallOptions(a); err != nil {
		return nil, err
	}
	if err := patchKernelFlavorTable(a); err != nil {
		return nil, err
	}

	newRaw, err := a.write()
	if err != nil {
		return nil, err
	}
	recompressed, err := recompress(newRaw, alg)
	if err != nil {
		return nil, err
	}
	return &Result{Data: recompressed, Algorithm: alg}, nil
}

func patchPackagesMok(a *archive, packagesMok []byte) error {
	if a.find(packagesMokPath) >= 0 {
		return a.replace(packagesMokPath, packagesMok)
	}
	a.insert(packagesMokPath, packagesMok)
	return nil
}

func patchInstallOptions(a *archive) error {
	raw, ok := a.get(buildInstallOptsPath)
	if !ok {
		return mokerror.New(mokerror.OriginalMissing, stage, buildInstallOptsPath, errNotFound(buildInstallOptsPath))
	}
	opts, err := decodeOrderedOptions(raw)
	if err != nil {
		return mokerror.New(mokerror.PayloadMismatch, stage, buildInstallOptsPath, err)
	}
	opts.prepend(mokOptionKey, InstallOption{
		Title:        mokOptionTitle,
		Visible:      true,
		PackagesJSON: "packages_mok.json",
	})
	encoded, err := opts.encode()
	if err != nil {
		return err
	}
	return a.replace(buildInstallOptsPath, encoded)
}

func patchKernelFlavorTable(a *archive) error {
	raw, ok := a.get(kernelFlavorTablePath)
	if !ok {
		return mokerror.New(mokerror.OriginalMissing, stage, kernelFlavorTablePath, errNotFound(kernelFlavorTablePath))
	}
	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return mokerror.New(mokerror.PayloadMismatch, stage, kernelFlavorTablePath, err)
	}
	table[MokKernelFlavor] = mokFlavorLabel

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return mokerror.New(mokerror.IsoWriteFailed, stage, kernelFlavorTablePath, err)
	}
	return a.replace(kernelFlavorTablePath, bytes.TrimRight(buf.Bytes(), "\n"))
}

// VerifyPatched re-checks the three edits against a produced initrd,
// used by the verifier's check 8 without re-running Patch.
func VerifyPatched(patchedInitrd []byte) error {
	raw, _, err := decompress(patchedInitrd)
	if err != nil {
		return err
	}
	a, err := readArchive(raw)
	if err != nil {
		return err
	}
	if _, ok := a.get(packagesMokPath); !ok {
		return mokerror.New(mokerror.VerifyFailed, stage, packagesMokPath, fmt.Errorf("packages_mok.json missing"))
	}
	optsRaw, ok := a.get(buildInstallOptsPath)
	if !ok {
		return mokerror.New(mokerror.VerifyFailed, stage, buildInstallOptsPath, fmt.Errorf("build_install_options_all.json missing"))
	}
	opts, err := decodeOrderedOptions(optsRaw)
	if err != nil {
		return mokerror.New(mokerror.VerifyFailed, stage, buildInstallOptsPath, err)
	}
	first, ok := opts.firstKey()
	if !ok || first != mokOptionKey {
		return mokerror.New(mokerror.VerifyFailed, stage, buildInstallOptsPath, fmt.Errorf("mok is not the first install option"))
	}
	if !opts.vals[mokOptionKey].Visible {
		return mokerror.New(mokerror.VerifyFailed, stage, buildInstallOptsPath, fmt.Errorf("mok option is not visible"))
	}

	flavorRaw, ok := a.get(kernelFlavorTablePath)
	if !ok {
		return mokerror.New(mokerror.VerifyFailed, stage, kernelFlavorTablePath, fmt.Errorf("kernel flavor table missing"))
	}
	var table map[string]string
	if err := json.Unmarshal(flavorRaw, &table); err != nil {
		return mokerror.New(mokerror.VerifyFailed, stage, kernelFlavorTablePath, err)
	}
	if _, ok := table[MokKernelFlavor]; !ok {
		return mokerror.New(mokerror.VerifyFailed, stage, kernelFlavorTablePath, fmt.Errorf("linux-mok not registered in kernel flavor table"))
	}
	return nil
}
