/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// DiscoverOriginal resolves the input RPM that provides the given file
// path by building an index from `rpm -qlp` over every *.rpm in
// candidateDir, matching the teacher's "resolve by content, not
// filename" instinct (mirrors pkg/elemental package-selection code
// that never trusts a package's declared version string alone).
func DiscoverOriginal(cfg *config.Config, candidateDir, providedPath string) (string, error) {
	entries, err := cfg.Fs.ReadDir(candidateDir)
	if err != nil {
		return "", mokerror.New(mokerror.OriginalMissing, "rpm-patcher", candidateDir, err)
	}

	pattern := providedPath
	hasGlob := strings.Contains(pattern, "*")

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rpm") {
			continue
		}
		rpmPath := filepath.Join(candidateDir, e.Name())
		out, err := cfg.Runner.RunContext(cfg.Context, "rpm", "-qlp", rpmPath)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(out), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if hasGlob {
				matched, _ := filepath.Match(pattern, line)
				if matched {
					return rpmPath, nil
				}
			} else if line == pattern {
				return rpmPath, nil
			}
		}
	}
	return "", mokerror.New(mokerror.OriginalMissing, "rpm-patcher", providedPath, fmt.Errorf("no RPM under %s provides %s", candidateDir, providedPath))
}

// Provides returns the first capability name an RPM declares, used to
// carry the same Provides: forward onto the -mok variant.
func Provides(cfg *config.Config, rpmPath string) (string, error) {
	out, err := cfg.Runner.RunContext(cfg.Context, "rpm", "-qp", "--provides", rpmPath)
	if err != nil {
		return "", mokerror.New(mokerror.OriginalMissing, "rpm-patcher", rpmPath, err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", mokerror.New(mokerror.PayloadMismatch, "rpm-patcher", rpmPath, fmt.Errorf("no Provides: entries"))
	}
	fields := strings.Fields(lines[0])
	return fields[0], nil
}

// NameVersionRelease returns the original's name, version and release,
// used to derive the -mok package's Name/Version and to bump Release.
func NameVersionRelease(cfg *config.Config, rpmPath string) (name, version, release string, err error) {
	out, runErr := cfg.Runner.RunContext(cfg.Context, "rpm", "-qp", "--qf", "%{NAME} %{VERSION} %{RELEASE}", rpmPath)
	if runErr != nil {
		return "", "", "", mokerror.New(mokerror.OriginalMissing, "rpm-patcher", rpmPath, runErr)
	}
	fields := strings.Fields(string(out))
	if len(fields) != 3 {
		return "", "", "", mokerror.New(mokerror.PayloadMismatch, "rpm-patcher", rpmPath, fmt.Errorf("unexpected rpm -q output: %q", out))
	}
	return fields[0], fields[1], fields[2], nil
}
