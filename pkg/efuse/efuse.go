/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package efuse builds the eFuse-simulation USB payload: a FAT32 image
// labelled EFUSE_SIM carrying the SRK fuse digest, the open/closed
// security configuration byte, and a human-readable config manifest,
// per spec.md §6's eFuse USB payload contract. It reuses
// pkg/fatimage's FAT32 builder rather than re-implementing image
// assembly, the same way the ISO Rewriter's ESP phase does.
package efuse

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/fatimage"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "efuse"

// VolumeLabel is the FAT32 label the stub grub.cfg's eFuse-USB variant
// searches for with `search --label EFUSE_SIM`.
const VolumeLabel = "EFUSE_SIM"

// SecConfig is the one-byte open/closed state written to
// efuse_sim/sec_config.bin.
type SecConfig byte

const (
	SecConfigOpen   SecConfig = 0x00
	SecConfigClosed SecConfig = 0x02
)

// Config describes one eFuse payload build.
type Config struct {
	SRKPublicKeyDER []byte
	SecConfig       SecConfig
}

// manifest is the JSON written to efuse_sim/efuse_config.json,
// recording the inputs a later diagnose run can cross-check the
// binary fuse files against.
type manifest struct {
	SRKFingerprintSHA256 string `json:"srk_fingerprint_sha256"`
	SecConfig            string `json:"sec_config"`
}

func (c SecConfig) String() string {
	if c == SecConfigClosed {
		return "closed"
	}
	return "open"
}

// Build assembles the eFuse payload files and writes them into a FAT32
// image at imagePath via pkg/fatimage.
func Build(cfg *config.Config, req Config, imagePath string) error {
	if len(req.SRKPublicKeyDER) == 0 {
		return mokerror.New(mokerror.InputValidation, stage, imagePath, errEmptySRK{})
	}

	digest := sha256.Sum256(req.SRKPublicKeyDER)

	m := manifest{
		SRKFingerprintSHA256: hex.EncodeToString(digest[:]),
		SecConfig:            req.SecConfig.String(),
	}
	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return mokerror.New(mokerror.PayloadMismatch, stage, imagePath, err)
	}

	files := []fatimage.File{
		{Path: "/efuse_sim/srk_fuse.bin", Data: digest[:]},
		{Path: "/efuse_sim/sec_config.bin", Data: []byte{byte(req.SecConfig)}},
		{Path: "/efuse_sim/efuse_config.json", Data: manifestJSON},
	}

	if err := fatimage.Build(cfg, imagePath, files); err != nil {
		return err
	}
	return nil
}

type errEmptySRK struct{}

func (errEmptySRK) Error() string { return "SRK public key is empty" }
