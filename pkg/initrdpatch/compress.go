/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package initrdpatch applies the three installer-initrd edits the MOK
// package set needs (a new packages_mok.json, a rewritten
// build_install_options_all.json, and a patched kernel-flavor table)
// without disturbing the initrd's outer compression or cpio framing.
package initrdpatch

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "initrd-patch"

// Algorithm is the outer compression wrapping the cpio newc archive.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmGzip
	AlgorithmXz
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmXz:
		return "xz"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// detectAlgorithm identifies the outer compression from its magic
// bytes, the same sniff every one of the three formats' own readers
// use internally.
func detectAlgorithm(data []byte) Algorithm {
	switch {
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return AlgorithmGzip
	case len(data) >= 6 && bytes.Equal(data[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return AlgorithmXz
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return AlgorithmZstd
	default:
		return AlgorithmUnknown
	}
}

// decompress strips the outer compression and returns the raw cpio
// newc archive along with the algorithm found, so the caller can
// recompress with the same one.
func decompress(data []byte) ([]byte, Algorithm, error) {
	alg := detectAlgorithm(data)
	switch alg {
	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		return raw, alg, nil
	case AlgorithmXz:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		return raw, alg, nil
	case AlgorithmZstd:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", err)
		}
		return raw, alg, nil
	default:
		return nil, alg, mokerror.New(mokerror.InputValidation, stage, "", fmt.Errorf("unrecognised initrd compression"))
	}
}

// recompress wraps raw cpio bytes back up with the algorithm the
// source initrd used, preserving the outer-format invariant.
func recompress(raw []byte, alg Algorithm) ([]byte, error) {
	var buf bytes.Buffer
	switch alg {
	case AlgorithmGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
		if err := w.Close(); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
	case AlgorithmXz:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
		if err := w.Close(); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
	case AlgorithmZstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
		if err := w.Close(); err != nil {
			return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
		}
	default:
		return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", fmt.Errorf("cannot recompress unknown algorithm"))
	}
	return buf.Bytes(), nil
}
