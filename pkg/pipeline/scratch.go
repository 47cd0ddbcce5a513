/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const pipelineStage = "pipeline"

const pidFileName = ".photon-mokboot.pid"

// AcquireScratchLock claims exclusive ownership of scratchRoot for one
// pipeline invocation via a pidfile, per spec.md §5's "the scratch root
// is owned exclusively by one pipeline invocation" rule. It returns a
// release func that removes the pidfile; callers defer it.
func AcquireScratchLock(cfg *config.Config, scratchRoot string) (func(), error) {
	if err := cfg.Fs.MkdirAll(scratchRoot, 0o755); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, pipelineStage, scratchRoot, err)
	}

	pidPath := filepath.Join(scratchRoot, pidFileName)
	if existing, err := cfg.Fs.ReadFile(pidPath); err == nil {
		if pid, parseErr := strconv.Atoi(strings.TrimSpace(string(existing))); parseErr == nil && processAlive(pid) {
			return nil, mokerror.New(mokerror.InputValidation, pipelineStage, scratchRoot,
				fmt.Errorf("scratch root already owned by running pid %d", pid))
		}
	}

	if err := cfg.Fs.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, pipelineStage, pidPath, err)
	}

	return func() { _ = cfg.Fs.RemoveAll(pidPath) }, nil
}

// processAlive reports whether pid names a live process. FindProcess
// always succeeds on Unix, so liveness is checked with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
