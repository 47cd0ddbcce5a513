/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package loopback_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/loopback"
	"github.com/vmware/photon-mokboot/pkg/types"
)

type scriptedRunner struct {
	out []byte
	err error
}

func (r *scriptedRunner) GetLogger() types.Logger { return nil }

func (r *scriptedRunner) Run(cmd string, args ...string) ([]byte, error) {
	return r.out, r.err
}

func (r *scriptedRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	return r.out, r.err
}

func TestAttachReturnsDevicePath(t *testing.T) {
	RegisterTestingT(t)
	runner := &scriptedRunner{out: []byte("/dev/loop7\n")}
	dev, err := loopback.Attach(runner, "/tmp/efiboot.img")
	Expect(err).To(BeNil())
	Expect(dev.DevicePath()).To(Equal("/dev/loop7"))
}

func TestAttachFailsOnEmptyDevicePath(t *testing.T) {
	RegisterTestingT(t)
	runner := &scriptedRunner{out: []byte("  \n")}
	_, err := loopback.Attach(runner, "/tmp/efiboot.img")
	Expect(err).NotTo(BeNil())
}

func TestAttachPropagatesRunnerError(t *testing.T) {
	RegisterTestingT(t)
	runner := &scriptedRunner{out: []byte("losetup: no free loop devices"), err: errToolMissing{}}
	_, err := loopback.Attach(runner, "/tmp/efiboot.img")
	Expect(err).NotTo(BeNil())
}

type errToolMissing struct{}

func (errToolMissing) Error() string { return "exit status 1" }
