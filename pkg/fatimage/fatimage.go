/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package fatimage builds the FAT32 ESP image (efiboot.img) the ISO
// Rewriter embeds via El-Torito, grounded on the teacher's
// pkg/partitioner/mkfs.go MkfsCall pattern (build an options slice,
// shell through Runner) generalized from formatting a block device to
// formatting, then populating, an image file through mtools without
// mounting it.
package fatimage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/loopback"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "fatimage"

// Volume label required for the ESP image.
const VolumeLabel = "EFIBOOT"

// MinSize is the spec's "≥16 MiB" floor.
const MinSize = 16 * 1024 * 1024

// MaxRetries bounds the "retry once at doubled size, then fatal" policy.
const MaxRetries = 1

// File is one entry to place inside the image, relative to its root.
type File struct {
	Path string
	Data []byte
}

// Build allocates a zero-filled image of at least MinSize bytes,
// formats it FAT32 with VolumeLabel, copies every File in via
// mcopy/mmd (no loopback mount needed for population — mtools write
// directly into a FAT image file), and returns the final path. If
// mcopy reports the image is full, Build doubles the size and retries
// once before surfacing EspOverflow, per spec.md's "retry once at
// doubled size, then fatal" rule.
func Build(cfg *config.Config, imagePath string, files []File) error {
	size := int64(MinSize)
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if err := allocate(cfg, imagePath, size); err != nil {
			return err
		}
		if err := format(cfg, imagePath); err != nil {
			return err
		}
		err := populate(cfg, imagePath, files)
		if err == nil {
			return nil
		}
		var pe *populateError
		if !errors.As(err, &pe) || !pe.full {
			return err
		}
		lastErr = pe.err
		size *= 2
	}
	return mokerror.New(mokerror.EspOverflow, stage, imagePath,
		fmt.Errorf("image still too small at %s after %d retries: %w", units.BytesSize(float64(size/2)), MaxRetries, lastErr))
}

// populateError tags whether an mcopy failure was specifically
// "out of space" (worth retrying at double size) versus some other
// mtools error (not worth retrying).
type populateError struct {
	full bool
	err  error
}

func (e *populateError) Error() string { return e.err.Error() }
func (e *populateError) Unwrap() error { return e.err }

func allocate(cfg *config.Config, imagePath string, size int64) error {
	out, err := cfg.Runner.RunContext(cfg.Context, "dd",
		"if=/dev/zero",
		"of="+imagePath,
		"bs=1M",
		fmt.Sprintf("count=%d", (size+1024*1024-1)/(1024*1024)),
	)
	if err != nil {
		return mokerror.New(mokerror.EspOverflow, stage, imagePath, errWithOutput(err, out))
	}
	return nil
}

func format(cfg *config.Config, imagePath string) error {
	out, err := cfg.Runner.RunContext(cfg.Context, "mkfs.vfat", "-F", "32", "-n", VolumeLabel, imagePath)
	if err != nil {
		return mokerror.New(mokerror.EspOverflow, stage, imagePath, errWithOutput(err, out))
	}
	return nil
}

// populate writes every File into the FAT image via mtools (mmd for
// parent directories, mcopy for file contents), matching the ISO
// Rewriter's dual-placement requirement without ever loopback-mounting
// the image for a simple file copy.
func populate(cfg *config.Config, imagePath string, files []File) error {
	madeDirs := map[string]bool{}
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if err := ensureDir(cfg, imagePath, dir, madeDirs); err != nil {
			return err
		}
		tmp := filepath.Join(cfg.TmpDir, "fatimage-staging-"+filepath.Base(f.Path))
		if err := cfg.Fs.WriteFile(tmp, f.Data, 0o644); err != nil {
			return mokerror.New(mokerror.KeyIo, stage, tmp, err)
		}
		out, err := cfg.Runner.RunContext(cfg.Context, "mcopy", "-i", imagePath, "-o", tmp, "::"+f.Path)
		if err != nil {
			full := strings.Contains(strings.ToLower(string(out)), "no space")
			return &populateError{full: full, err: mokerror.New(mokerror.EspOverflow, stage, f.Path, errWithOutput(err, out))}
		}
	}
	return nil
}

// ensureDir creates dir and every parent it needs, level by level —
// mmd has no -p equivalent, so a multi-segment path like /EFI/BOOT
// needs /EFI created before /EFI/BOOT. Errors are ignored on a
// per-level basis: mmd fails if the directory already exists, which
// happens whenever two dual-placed files share a parent.
func ensureDir(cfg *config.Config, imagePath, dir string, madeDirs map[string]bool) error {
	if dir == "." || dir == "/" || madeDirs[dir] {
		return nil
	}
	if err := ensureDir(cfg, imagePath, filepath.Dir(dir), madeDirs); err != nil {
		return err
	}
	_, _ = cfg.Runner.RunContext(cfg.Context, "mmd", "-i", imagePath, "::"+dir)
	madeDirs[dir] = true
	return nil
}

func errWithOutput(err error, output []byte) error {
	if len(output) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, string(output))
}

// MountForVerification attaches the image as a loop device and mounts
// it read-only, for the verifier's byte-identical dual-placement check
// (spec.md P1) where reading through mtools would mean re-shelling
// mcopy per file instead of a single os.ReadFile tree.
func MountForVerification(cfg *config.Config, imagePath, mountPoint string) (*loopback.Device, error) {
	dev, err := loopback.Attach(cfg.Runner, imagePath)
	if err != nil {
		return nil, err
	}
	if err := dev.Mount(mountPoint, "vfat", []string{"ro"}); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}
