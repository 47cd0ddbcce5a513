/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package grubstub

import (
	"bytes"
	"text/template"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// standardStubCfg is the bootstrap config embedded in the standard
// MOK-signed GRUB stub: it locates the installer on the ISO, offers
// the MokManager enrollment path, and falls through to firmware setup
// or power control, timing out to the installer after 5 seconds.
const standardStubCfg = `set default=0
set timeout=5
search --no-floppy --file --set=isoroot /isolinux/vmlinuz
menuentry "Continue to {{.Release}} Installer" {
	configfile ($isoroot)/boot/grub2/grub.cfg
}
menuentry "Chainload original bootloader" {
	chainloader /EFI/BOOT/grubx64_real.efi
}
menuentry "MokManager - Enroll/Delete MOK Keys" {
	chainloader /MokManager.efi
}
menuentry "Firmware Setup" {
	fwsetup
}
menuentry "Reboot" {
	reboot
}
menuentry "Shutdown" {
	halt
}
`

// efuseStubCfg is the eFuse-USB variant: it additionally requires the
// simulated SRK fuse payload to be present on a labelled USB device
// before offering the installer entry, and replaces the "continue"
// chainload with a chainloader-based retry that forces GRUB to rescan
// devices, since fwsetup alone does not reliably re-enumerate a
// hot-plugged USB stick on all firmwares.
const efuseStubCfg = `set default=0
set timeout=5
search --no-floppy --file --set=isoroot /isolinux/vmlinuz
search --no-floppy --label --set=efuseroot EFUSE_SIM
if [ -f ($efuseroot)/efuse_sim/srk_fuse.bin ]; then
	set efuse_valid=1
else
	set efuse_valid=0
fi
if [ "$efuse_valid" = "1" ]; then
	menuentry "Continue to {{.Release}} Installer" {
		configfile ($isoroot)/boot/grub2/grub.cfg
	}
else
	menuentry "eFuse payload not found - insert eFuse USB and retry" {
		chainloader $prefix/grub.cfg
	}
fi
menuentry "Retry" {
	chainloader $prefix/grub.cfg
}
menuentry "Chainload original bootloader" {
	chainloader /EFI/BOOT/grubx64_real.efi
}
menuentry "MokManager - Enroll/Delete MOK Keys" {
	chainloader /MokManager.efi
}
menuentry "Firmware Setup" {
	fwsetup
}
menuentry "Reboot" {
	reboot
}
menuentry "Shutdown" {
	halt
}
`

// cfgVars is the template data for the embedded stub configs.
type cfgVars struct {
	Release string
}

// RenderConfig synthesises the stub's embedded grub.cfg text, choosing
// the eFuse-USB variant when efuseUSBMode is set.
func RenderConfig(release string, efuseUSBMode bool) ([]byte, error) {
	src := standardStubCfg
	if efuseUSBMode {
		src = efuseStubCfg
	}
	tmpl, err := template.New("grub.cfg").Parse(src)
	if err != nil {
		return nil, mokerror.New(mokerror.StubAssemblyFailed, stage, "grub.cfg", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfgVars{Release: release}); err != nil {
		return nil, mokerror.New(mokerror.StubAssemblyFailed, stage, "grub.cfg", err)
	}
	return buf.Bytes(), nil
}
