package types

import (
	"context"
	"os/exec"
	"strings"
)

// Runner wraps external tool invocation so every sbsign/xorriso/rpmbuild/
// mkfs.vfat/grub2-mkimage/rpmsign/mcopy call goes through one seam that
// can be mocked in tests and cancelled via context.
type Runner interface {
	Run(cmd string, args ...string) ([]byte, error)
	RunContext(ctx context.Context, cmd string, args ...string) ([]byte, error)
	GetLogger() Logger
}

// RealRunner executes commands with os/exec.
type RealRunner struct {
	Logger Logger
}

func (r *RealRunner) Run(command string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), command, args...)
}

func (r *RealRunner) RunContext(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if r.Logger != nil {
		r.Logger.Debugf("running: %s %s", command, strings.Join(args, " "))
	}
	return cmd.CombinedOutput()
}

func (r *RealRunner) GetLogger() Logger {
	return r.Logger
}
