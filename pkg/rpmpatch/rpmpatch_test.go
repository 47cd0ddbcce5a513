/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
)

func TestVariantProvidedPaths(t *testing.T) {
	RegisterTestingT(t)
	Expect(rpmpatch.VariantShim.ProvidedPath()).To(Equal("/boot/efi/EFI/BOOT/bootx64.efi"))
	Expect(rpmpatch.VariantGrubStub.ProvidedPath()).To(Equal("/boot/efi/EFI/BOOT/grubx64.efi"))
	Expect(rpmpatch.VariantLinux.ProvidedPath()).To(Equal("/boot/vmlinuz-*"))
}

func TestVariantNames(t *testing.T) {
	RegisterTestingT(t)
	Expect(rpmpatch.VariantShim.String()).To(Equal("shim-signed-mok"))
	Expect(rpmpatch.VariantGrubStub.String()).To(Equal("grub2-efi-image-mok"))
	Expect(rpmpatch.VariantLinux.String()).To(Equal("linux-mok"))
}
