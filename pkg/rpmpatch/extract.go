/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"fmt"
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "rpm-patcher"

// extractPayload decompresses an RPM's lead/header/signature framing
// with the standard rpm2cpio tool, then decodes the resulting cpio
// newc stream itself with cpioarchive, the same way pkg/initrdpatch
// decodes an initrd's embedded archive. Shelling out for the
// RPM-specific framing avoids reimplementing the lead+header+signature
// parser; cpioarchive then gives precise, typed access to the payload
// without a second external `cpio` process.
func extractPayload(cfg *config.Config, rpmPath string) (*cpioarchive.Archive, error) {
	cpioPath := filepath.Join(cfg.TmpDir, filepath.Base(rpmPath)+".cpio")
	script := "rpm2cpio " + shellQuote(rpmPath) + " > " + shellQuote(cpioPath)
	out, err := cfg.Runner.RunContext(cfg.Context, "sh", "-c", script)
	if err != nil {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, rpmPath, errWithOutput(err, out))
	}

	raw, err := cfg.Fs.ReadFile(cpioPath)
	if err != nil {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, cpioPath, err)
	}

	archive, err := cpioarchive.Read(raw)
	if err != nil {
		return nil, mokerror.New(mokerror.PayloadMismatch, stage, rpmPath, err)
	}
	return archive, nil
}

// ExtractFile locates the RPM under candidateDir that provides
// providedPath and returns that one file's payload bytes, for callers
// outside this package that need a single file out-of-band (e.g. the
// ISO Rewriter's vendor-GRUB fallback) rather than a full -mok rebuild.
func ExtractFile(cfg *config.Config, candidateDir, providedPath string) ([]byte, error) {
	rpmPath, err := DiscoverOriginal(cfg, candidateDir, providedPath)
	if err != nil {
		return nil, err
	}
	payload, err := extractPayload(cfg, rpmPath)
	if err != nil {
		return nil, err
	}
	data, ok := payload.Get(providedPath)
	if !ok {
		return nil, mokerror.New(mokerror.OriginalMissing, stage, providedPath,
			fmt.Errorf("%s does not contain %s", rpmPath, providedPath))
	}
	return data, nil
}

// shellQuote wraps a path in single quotes for the sh -c scripts this
// package builds, escaping any embedded single quote.
func shellQuote(s string) string {
	out := "'"
	for _, r := range s {
		if r == '\'' {
			out += `'\''`
		} else {
			out += string(r)
		}
	}
	return out + "'"
}

type outputError struct {
	err    error
	output []byte
}

func (e *outputError) Error() string { return e.err.Error() + ": " + string(e.output) }
func (e *outputError) Unwrap() error { return e.err }

func errWithOutput(err error, output []byte) error {
	return &outputError{err: err, output: output}
}
