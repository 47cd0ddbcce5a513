/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/vmware/photon-mokboot/pkg/types"
)

// Token is the cancellation signal checked between stages and between
// RPM workers. It is new relative to the teacher, which never cancels
// mid-build, but follows the same context-plumbing convention every
// Runner call already uses.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken derives a cancellable token from parent.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel requests a clean teardown; in-flight external tools get
// SIGTERM, then SIGKILL if they haven't exited within the runner's
// grace period.
func (t *Token) Cancel() { t.cancel() }

// Context is handed to RunContext calls so external tools observe
// cancellation directly.
func (t *Token) Context() context.Context { return t.ctx }

// Cancelled reports whether Cancel has been called, for the checks
// between stages and between worker iterations that spec.md requires.
func (t *Token) Cancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Err returns the token's context error, or nil if still live.
func (t *Token) Err() error { return t.ctx.Err() }

// GracefulRunner is the production Runner: on context cancellation it
// sends SIGTERM to the child and only escalates to SIGKILL if the
// process hasn't exited within Grace, per spec.md §5's
// "SIGTERM then SIGKILL after a 5-second grace" cancellation policy.
type GracefulRunner struct {
	Logger types.Logger
	Grace  time.Duration
}

func (r *GracefulRunner) Run(command string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), command, args...)
}

func (r *GracefulRunner) RunContext(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	grace := r.Grace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	cmd.WaitDelay = grace
	if r.Logger != nil {
		r.Logger.Debugf("running: %s %v", command, args)
	}
	return cmd.CombinedOutput()
}

func (r *GracefulRunner) GetLogger() types.Logger {
	return r.Logger
}
