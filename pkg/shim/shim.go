/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package shim extracts the embedded Microsoft-signed shim and
// MokManager binaries and validates them against the invariants the
// rest of the boot chain depends on.
package shim

import (
	"bytes"
	"crypto/x509"
	"embed"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/vmware/photon-mokboot/pkg/authenticode"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/sbat"
)

const stage = "shim-provider"

//go:embed embedded
var embeddedAssets embed.FS

// mokManagerSearchPath is shim's hardcoded search path for the MOK
// enrollment UI, fixed by the vendor shim this module embeds.
const mokManagerSearchPath = `\MokManager.efi`

// MokManagerSearchPath returns the filesystem-root path shim's
// hardcoded loader uses to find MokManager.efi. It takes the shim blob
// for symmetry with the rest of the Shim Provider API even though the
// result never varies for the vendor shim this module embeds.
func MokManagerSearchPath(_ Blob) string {
	return mokManagerSearchPath
}

// microsoftUEFICA2011CN names the root every shim's Microsoft signature
// must chain to, for error messages; the actual trust decision is a
// certificate chain verification against microsoftUEFICA2011Root, never
// a string compare against a signer's subject.
const microsoftUEFICA2011CN = "Microsoft Corporation UEFI CA 2011"

// TrustedMicrosoftRoot returns the Microsoft UEFI CA 2011 root
// certificate every Microsoft-signed shim and bootloader must chain to,
// for callers outside this package (the Verifier) that need to repeat
// the same chain check Validate performs.
func TrustedMicrosoftRoot() (*x509.Certificate, error) {
	return loadMicrosoftUEFICA2011Root()
}

// loadMicrosoftUEFICA2011Root decodes the vendored Microsoft UEFI CA
// 2011 root certificate. The file under embedded/ is populated by the
// release packaging pipeline the same way the shim and MokManager
// binaries are; source control carries a placeholder so the module
// builds without redistributing Microsoft's certificate.
func loadMicrosoftUEFICA2011Root() (*x509.Certificate, error) {
	raw, err := embeddedAssets.ReadFile("embedded/MicCorUEFCA2011.pem")
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "MicCorUEFCA2011.pem", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "MicCorUEFCA2011.pem", fmt.Errorf("not a PEM certificate"))
	}
	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "MicCorUEFCA2011.pem", fmt.Errorf("parse root certificate: %w", err))
	}
	return root, nil
}

// Blob is an immutable, already-decompressed shim or MokManager image.
type Blob struct {
	Name string
	Data []byte
}

// LoadEmbedded decompresses the shim and MokManager binaries compiled
// into this package via go:embed. The files under embedded/ are
// populated by the release packaging pipeline with the genuine
// Microsoft- and SUSE-signed binaries before a distributable build is
// produced; what ships in source control is a placeholder so the
// module is buildable without redistributing vendor-signed firmware.
func LoadEmbedded() (shimBlob Blob, mokManagerBlob Blob, err error) {
	shimXz, err := embeddedAssets.ReadFile("embedded/shim-suse.efi.xz")
	if err != nil {
		return Blob{}, Blob{}, mokerror.New(mokerror.ShimInvalid, stage, "shim-suse.efi.xz", err)
	}
	shimData, err := decompressXz(shimXz)
	if err != nil {
		return Blob{}, Blob{}, mokerror.New(mokerror.ShimInvalid, stage, "shim-suse.efi.xz", err)
	}

	mmXz, err := embeddedAssets.ReadFile("embedded/mokmanager-suse.efi.xz")
	if err != nil {
		return Blob{}, Blob{}, mokerror.New(mokerror.ShimInvalid, stage, "mokmanager-suse.efi.xz", err)
	}
	mmData, err := decompressXz(mmXz)
	if err != nil {
		return Blob{}, Blob{}, mokerror.New(mokerror.ShimInvalid, stage, "mokmanager-suse.efi.xz", err)
	}

	return Blob{Name: "shim-suse.efi", Data: shimData}, Blob{Name: "MokManager.efi", Data: mmData}, nil
}

func decompressXz(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	return io.ReadAll(r)
}

// ValidationResult carries the outcome of validate(shim): a hard
// failure for a missing/invalid SBAT or wrong Microsoft signer, and a
// non-fatal warning when the SUSE co-signer is absent.
type ValidationResult struct {
	SbatVector   sbat.Vector
	HasMicrosoft bool
	HasSUSE      bool
	Warnings     []string
}

// Validate parses the shim's PE image, checks its SBAT self-description
// and enumerates its Authenticode signers. A missing/invalid SBAT or a
// missing Microsoft UEFI CA 2011 signer is fatal; a missing SUSE
// co-signer is warning-only.
func Validate(blob Blob) (*ValidationResult, error) {
	vec, err := sbat.Read(blob.Data)
	if err != nil {
		return nil, err
	}
	if err := sbat.RequireMinimumShimGeneration(vec); err != nil {
		return nil, err
	}

	signers, err := authenticode.SignersFromBytes(blob.Data, blob.Name)
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, blob.Name, err)
	}

	root, err := loadMicrosoftUEFICA2011Root()
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{SbatVector: vec}
	result.HasMicrosoft, err = authenticode.VerifyIssuedByBytes(blob.Data, blob.Name, root)
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, blob.Name, err)
	}
	for _, signer := range signers {
		for _, o := range signer.Subject.Organization {
			if o == "SUSE LLC" || o == "SUSE Linux GmbH" {
				result.HasSUSE = true
			}
		}
	}
	if !result.HasMicrosoft {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, blob.Name,
			fmt.Errorf("no signer chain rooted at %q", microsoftUEFICA2011CN))
	}
	if !result.HasSUSE {
		result.Warnings = append(result.Warnings, "no SUSE co-signer found on shim")
	}
	return result, nil
}
