/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/cenkalti/backoff/v4"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/loopback"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
)

const extractStage = "isobuild-extract"

// SourceInfo is everything Phase A captures from the source ISO before
// it is discarded: the pieces later phases must preserve or reuse.
type SourceInfo struct {
	RootDir         string
	VolumeID        string
	EfiBootImgBytes int64
	GrubReal        []byte
}

// ExtractSource mounts the source ISO read-only via loopback, copies
// its tree into extractDir, captures the volume identifier and the
// existing efiboot.img's size (the "byte offset" spec.md asks to
// capture collapses, for a freshly-copied tree, to "how big was it" —
// the rebuild allocates its own image rather than patching in place),
// and reads aside the original grubx64_real.efi for reuse. Grounded on
// the teacher's v1.Mounter-backed loop-mount pattern, now routed
// through pkg/loopback's scoped Attach/Mount/Close.
func ExtractSource(cfg *config.Config, req Request, extractDir string) (*SourceInfo, error) {
	mountPoint := filepath.Join(extractDir, "src-mount")
	if err := cfg.Fs.MkdirAll(mountPoint, 0o755); err != nil {
		return nil, mokerror.New(mokerror.IsoUnreadable, extractStage, mountPoint, err)
	}

	dev, err := loopback.Attach(cfg.Runner, req.SourceISO)
	if err != nil {
		return nil, mokerror.New(mokerror.IsoUnreadable, extractStage, req.SourceISO, err)
	}
	defer dev.Close()
	if err := dev.Mount(mountPoint, "iso9660", []string{"ro"}); err != nil {
		return nil, mokerror.New(mokerror.IsoUnreadable, extractStage, req.SourceISO, err)
	}

	rootDir := filepath.Join(extractDir, "root")
	if out, err := cfg.Runner.RunContext(cfg.Context, "cp", "-a", mountPoint+"/.", rootDir); err != nil {
		return nil, mokerror.New(mokerror.IsoUnreadable, extractStage, rootDir, errWithOutput(err, out))
	}
	if err := dev.CleanClose(); err != nil {
		return nil, err
	}

	volid, err := readVolumeID(cfg, req.SourceISO)
	if err != nil {
		return nil, err
	}

	grubRealPath := filepath.Join(rootDir, efiBootDir, NameGrubReal)
	grubReal, err := cfg.Fs.ReadFile(grubRealPath)
	if err != nil {
		grubReal, err = recoverVendorGrub(cfg, req, filepath.Join(extractDir, NameGrubReal))
		if err != nil {
			return nil, err
		}
	}

	var espSize int64
	espPath := filepath.Join(rootDir, "boot", "grub2", "efiboot.img")
	if st, statErr := cfg.Fs.Stat(espPath); statErr == nil {
		espSize = st.Size()
	}

	return &SourceInfo{
		RootDir:         rootDir,
		VolumeID:        truncateVolumeID(volid),
		EfiBootImgBytes: espSize,
		GrubReal:        grubReal,
	}, nil
}

// truncateVolumeID enforces ISO9660's 32-byte volume identifier limit,
// per spec.md's "volume identifier is preserved (truncated to 32 bytes)".
func truncateVolumeID(volid string) string {
	if len(volid) <= 32 {
		return volid
	}
	return volid[:32]
}

func readVolumeID(cfg *config.Config, sourceISO string) (string, error) {
	out, err := cfg.Runner.RunContext(cfg.Context, "xorriso", "-indev", sourceISO, "-pvd_info")
	if err != nil {
		return "", mokerror.New(mokerror.IsoUnreadable, extractStage, sourceISO, errWithOutput(err, out))
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "Volume id") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(strings.Trim(strings.TrimSpace(parts[1]), "'")), nil
			}
		}
	}
	return "", mokerror.New(mokerror.IsoUnreadable, extractStage, sourceISO, fmt.Errorf("xorriso -pvd_info reported no Volume id"))
}

// recoverVendorGrub implements spec.md §4.5 Phase A's fallback for a
// source ISO that lacks grubx64_real.efi: first try extracting it out
// of band from the original grub2-efi-image RPM under req.CandidateDir
// (the same discover-by-path resolution the RPM Patcher uses), and
// only fall back to a network fetch if no candidate RPM provides it.
func recoverVendorGrub(cfg *config.Config, req Request, dest string) ([]byte, error) {
	if req.CandidateDir != "" {
		data, err := rpmpatch.ExtractFile(cfg, req.CandidateDir, rpmpatch.VariantGrubStub.ProvidedPath())
		if err == nil {
			return data, nil
		}
	}
	return fetchVendorGrub(cfg, req.VendorGrubURL, dest)
}

// fetchVendorGrub retries the network fetch 3 times with a 10 second
// backoff, per the error handling design's NetworkUnreachable policy.
func fetchVendorGrub(cfg *config.Config, url, dest string) ([]byte, error) {
	if url == "" {
		return nil, mokerror.New(mokerror.OriginalMissing, extractStage, NameGrubReal,
			fmt.Errorf("source ISO lacks %s, no candidate RPM provides it, and no fallback URL configured", NameGrubReal))
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Second), 3)
	var lastErr error
	op := func() error {
		resp, err := grab.Get(dest, url)
		if err != nil {
			lastErr = err
			return err
		}
		_ = resp
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, mokerror.New(mokerror.NetworkUnreachable, extractStage, url, lastErr)
	}
	return cfg.Fs.ReadFile(dest)
}

func errWithOutput(err error, output []byte) error {
	if len(output) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, string(output))
}
