/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package initrdpatch_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/initrdpatch"
)

func TestComputeMokPackagesSubstitutesMokVariants(t *testing.T) {
	RegisterTestingT(t)
	original := buildFixtureInitrd(t, map[string]string{
		"installer/packages_minimal.json": `{"packages": ["grub2-efi-image", "shim-signed", "linux", "glibc", "coreutils"]}`,
	})

	out, err := initrdpatch.ComputeMokPackages(original)
	Expect(err).To(BeNil())

	var got struct {
		Packages []string `json:"packages"`
	}
	Expect(json.Unmarshal(out, &got)).To(BeNil())
	Expect(got.Packages).To(Equal([]string{
		"grub2-efi-image-mok", "shim-signed-mok", "linux-mok", "glibc", "coreutils",
	}))
}

func TestComputeMokPackagesFailsWhenPackagesFileMissing(t *testing.T) {
	RegisterTestingT(t)
	// "minimal" points at packages_minimal.json, but that file is never
	// added to the fixture, mirroring a repodata-less installer tree.
	original := buildFixtureInitrd(t, map[string]string{})
	_, err := initrdpatch.ComputeMokPackages(original)
	Expect(err).To(HaveOccurred())
}
