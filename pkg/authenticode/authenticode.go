/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package authenticode computes and verifies PE/Authenticode signatures
// on the shim, GRUB stub and kernel binaries carried in a rebuilt ISO.
// It signs by shelling to sbsign rather than reimplementing PKCS#7
// construction, and reads back digests and signer chains with
// go-efilib, the library the teacher vendors for exactly this purpose.
package authenticode

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	efi "github.com/canonical/go-efilib"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/pathvalidate"
)

// certificateTableIndex is the index of the Certificate Table entry in
// a PE optional header's data directory (PE/COFF spec §3.4.3).
const certificateTableIndex = 4

const stage = "authenticode"

// Digest returns the Authenticode PE image digest, excluding the
// certificate table, as go-efilib computes it.
func Digest(alg crypto.Hash, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, path, err)
	}
	digest, err := efi.ComputePeImageDigest(alg, f, info.Size())
	if err != nil {
		return nil, mokerror.New(mokerror.SignFailed, stage, path, fmt.Errorf("compute digest: %w", err))
	}
	return digest, nil
}

// Sign invokes sbsign against keyPath/certPath to write a signed copy
// of inPath to outPath, with the Authenticode signature embedded in the
// image (no detached signature file is produced).
func Sign(cfg *config.Config, inPath, keyPath, certPath, outPath string) error {
	if err := pathvalidate.ValidateAll(inPath, keyPath, certPath, outPath); err != nil {
		return mokerror.New(mokerror.InputValidation, stage, inPath, err)
	}

	args := []string{"--key", keyPath, "--cert", certPath, "--output", outPath, inPath}
	out, err := cfg.Runner.RunContext(cfg.Context, "sbsign", args...)
	if err != nil {
		return mokerror.New(mokerror.SignFailed, stage, inPath, fmt.Errorf("sbsign failed: %w: %s", err, out))
	}
	return nil
}

// Signers parses the WIN_CERTIFICATE directory of a signed PE image and
// returns every signer certificate chain, regardless of whether the
// image carries multiple co-signatures (e.g. Microsoft plus a
// distribution's own signer).
func Signers(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, path, err)
	}
	return SignersFromBytes(data, path)
}

// SignersFromBytes is the in-memory equivalent of Signers, used by
// callers (like the Shim Provider) that hold a decompressed blob
// rather than a path on disk. Shim ships as two WIN_CERTIFICATE
// entries concatenated within one Certificate Table span (one signed
// by Microsoft, one by the distribution), so every entry is decoded,
// not just the first.
func SignersFromBytes(data []byte, name string) ([]*x509.Certificate, error) {
	certs, err := extractWinCertificatesFromBytes(data, name)
	if err != nil {
		return nil, err
	}

	var signers []*x509.Certificate
	for _, cert := range certs {
		switch c := cert.(type) {
		case *efi.WinCertificateAuthenticode:
			signers = append(signers, c.GetSigner())
		default:
			return nil, mokerror.New(mokerror.ShimInvalid, stage, name,
				fmt.Errorf("unsupported certificate type %T", cert))
		}
	}
	return signers, nil
}

// VerifyIssuedBy reports whether any of the signer certificates on path
// were issued by root, the last link required before trusting a shim or
// GRUB stub as coming from a given CA.
func VerifyIssuedBy(path string, root *x509.Certificate) (bool, error) {
	signers, err := Signers(path)
	if err != nil {
		return false, err
	}
	return verifyAnySignerIssuedBy(signers, root), nil
}

// VerifyIssuedByBytes is the in-memory equivalent of VerifyIssuedBy, for
// callers (like the Shim Provider) holding a decompressed blob rather
// than a path on disk.
func VerifyIssuedByBytes(data []byte, name string, root *x509.Certificate) (bool, error) {
	signers, err := SignersFromBytes(data, name)
	if err != nil {
		return false, err
	}
	return verifyAnySignerIssuedBy(signers, root), nil
}

// verifyAnySignerIssuedBy builds a one-certificate pool from root and
// chain-verifies every signer against it, rather than comparing a
// signer's subject name against the root's: the root's identity belongs
// to the issuer up the chain, never to the leaf signer certificate
// itself.
func verifyAnySignerIssuedBy(signers []*x509.Certificate, root *x509.Certificate) bool {
	pool := x509.NewCertPool()
	pool.AddCert(root)
	for _, signer := range signers {
		if _, err := signer.Verify(x509.VerifyOptions{
			Roots:     pool,
			KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err == nil {
			return true
		}
	}
	return false
}

// extractWinCertificatesFromBytes locates the Certificate Table entry
// in the PE optional header's data directory and decodes every
// WIN_CERTIFICATE structure packed into it. go-efilib's
// ReadWinCertificate expects a reader already positioned at one such
// structure rather than the start of the file, and doesn't itself
// expose the data-directory lookup or the multi-entry framing, so
// debug/pe fills that gap: the standard library already knows how to
// walk a PE optional header, and nothing in the retrieval pack wraps
// that as a public helper.
func extractWinCertificatesFromBytes(data []byte, name string) ([]efi.WinCertificate, error) {
	peFile, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("decode PE: %w", err))
	}
	defer peFile.Close()

	var rva, size uint32
	switch oh := peFile.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if len(oh.DataDirectory) <= certificateTableIndex {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("no certificate table"))
		}
		rva = oh.DataDirectory[certificateTableIndex].VirtualAddress
		size = oh.DataDirectory[certificateTableIndex].Size
	case *pe.OptionalHeader64:
		if len(oh.DataDirectory) <= certificateTableIndex {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("no certificate table"))
		}
		rva = oh.DataDirectory[certificateTableIndex].VirtualAddress
		size = oh.DataDirectory[certificateTableIndex].Size
	default:
		return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("unrecognized optional header"))
	}
	if size == 0 {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("image is unsigned"))
	}

	// For the Certificate Table, the RVA is a plain file offset rather
	// than a section-relative virtual address.
	if int(rva)+int(size) > len(data) {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("certificate table out of range"))
	}

	table := data[rva : rva+size]
	var certs []efi.WinCertificate
	offset := 0
	for offset < len(table) {
		// WIN_CERTIFICATE entries are individually length-prefixed and
		// 8-byte aligned within the table (PE/COFF spec §5.7).
		remaining := table[offset:]
		if len(remaining) < 8 {
			break
		}
		entryLen := int(binary.LittleEndian.Uint32(remaining[:4]))
		if entryLen < 8 || entryLen > len(remaining) {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("malformed WIN_CERTIFICATE entry length %d", entryLen))
		}
		cert, err := efi.ReadWinCertificate(bytes.NewReader(remaining[:entryLen]))
		if err != nil {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("read certificate: %w", err))
		}
		certs = append(certs, cert)

		advance := entryLen
		if rem := advance % 8; rem != 0 {
			advance += 8 - rem
		}
		offset += advance
	}
	if len(certs) == 0 {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, name, fmt.Errorf("certificate table contains no entries"))
	}
	return certs, nil
}

// DestinationExists is a small guard used by callers that need to
// refuse overwriting a signed artifact in place.
func DestinationExists(cfg *config.Config, path string) bool {
	_, err := cfg.Fs.Stat(filepath.Clean(path))
	return err == nil
}
