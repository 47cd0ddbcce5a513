/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package loopback provides a scoped loopback-device-plus-mount resource,
// generalizing the teacher's implicit assumption that it always runs
// against a real disk inside a chroot into an explicit resource any
// stage can Attach/Mount/Close, the same shape as
// other_examples' safeloopback/safemount pair but mounting through
// k8s.io/mount-utils (the teacher's own v1.Mounter backend) instead of
// a hand-rolled syscall.Mount wrapper.
package loopback

import (
	"fmt"
	"strings"

	mountutils "k8s.io/mount-utils"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
	"github.com/vmware/photon-mokboot/pkg/types"
)

const stage = "loopback"

// Device is an attached loop device, optionally mounted. Close (or
// CleanClose for a build that wants failures surfaced) tears both down
// in the right order regardless of whether Mount was ever called.
type Device struct {
	runner     types.Runner
	mounter    mountutils.Interface
	backing    string
	devicePath string
	mountPoint string
	mounted    bool
}

// Attach runs losetup against the given backing file (a raw disk image
// or an efiboot.img) and returns a Device positioned at the resulting
// /dev/loopN node. mount-utils has no loop-device attach primitive of
// its own (it only mounts already-existing block devices), so this
// shells to losetup the same way the teacher shells to mkfs.vfat/sbsign
// for steps outside what its own libraries cover.
func Attach(runner types.Runner, backing string) (*Device, error) {
	out, err := runner.Run("losetup", "--show", "--find", backing)
	if err != nil {
		return nil, mokerror.New(mokerror.ToolchainMissing, stage, backing, outputError(out, err))
	}
	devicePath := strings.TrimSpace(string(out))
	if devicePath == "" {
		return nil, mokerror.New(mokerror.ToolchainMissing, stage, backing, fmt.Errorf("losetup returned no device path"))
	}
	return &Device{
		runner:     runner,
		mounter:    mountutils.New(""),
		backing:    backing,
		devicePath: devicePath,
	}, nil
}

// DevicePath returns the attached /dev/loopN node.
func (d *Device) DevicePath() string {
	return d.devicePath
}

// Mount mounts the loop device at mountPoint with the given filesystem
// type and options, mirroring v1.Mounter.Mount's signature so callers
// already familiar with the teacher's config.Mounter feel at home here.
func (d *Device) Mount(mountPoint, fstype string, options []string) error {
	if err := d.mounter.Mount(d.devicePath, mountPoint, fstype, options); err != nil {
		return mokerror.New(mokerror.IsoUnreadable, stage, mountPoint, err)
	}
	d.mountPoint = mountPoint
	d.mounted = true
	return nil
}

// CleanClose unmounts (if mounted) and detaches the loop device,
// returning the first error encountered instead of swallowing it —
// for stages that must know a teardown step failed.
func (d *Device) CleanClose() error {
	if d.mounted {
		if err := d.mounter.Unmount(d.mountPoint); err != nil {
			return mokerror.New(mokerror.IsoUnreadable, stage, d.mountPoint, err)
		}
		d.mounted = false
	}
	if out, err := d.runner.Run("losetup", "--detach", d.devicePath); err != nil {
		return mokerror.New(mokerror.ToolchainMissing, stage, d.devicePath, outputError(out, err))
	}
	return nil
}

// Close is CleanClose with errors discarded, for use as a bare defer in
// the pkg/cleanstack sense ("always run, but the stage already checked
// the success path explicitly").
func (d *Device) Close() {
	_ = d.CleanClose()
}

func outputError(output []byte, err error) error {
	if len(output) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, string(output))
}
