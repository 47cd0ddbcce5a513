/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package initrdpatch_test

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/cavaliercoder/go-cpio"
	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/initrdpatch"
)

func buildFixtureInitrd(t *testing.T, extra map[string]string) []byte {
	t.Helper()
	var cpioBuf bytes.Buffer
	w := cpio.NewWriter(&cpioBuf)

	files := map[string]string{
		"installer/build_install_options_all.json": `{
  "minimal": {"title": "Minimal", "visible": true, "packages_json": "packages_minimal.json"},
  "full": {"title": "Full", "visible": true, "packages_json": "packages_full.json"}
}`,
		"installer/kernel_flavors.json": `{"linux": "Generic", "linux-rt": "PREEMPT_RT"}`,
	}
	for k, v := range extra {
		files[k] = v
	}
	for name, content := range files {
		hdr := &cpio.Header{Name: name, Mode: cpio.FileMode(0o100644), Size: int64(len(content))}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	if _, err := gz.Write(cpioBuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return gzBuf.Bytes()
}

func TestPatchAppliesAllThreeEdits(t *testing.T) {
	RegisterTestingT(t)
	original := buildFixtureInitrd(t, nil)

	result, err := initrdpatch.Patch(original, []byte(`{"packages": ["grub2-efi-image-mok", "shim-signed-mok", "linux-mok"]}`))
	Expect(err).To(BeNil())
	Expect(result.Algorithm).To(Equal(initrdpatch.AlgorithmGzip))

	Expect(initrdpatch.VerifyPatched(result.Data)).To(BeNil())
}

func TestPatchFailsWhenInstallOptionsMissing(t *testing.T) {
	RegisterTestingT(t)
	var cpioBuf bytes.Buffer
	w := cpio.NewWriter(&cpioBuf)
	w.Close()
	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	gz.Write(cpioBuf.Bytes())
	gz.Close()

	_, err := initrdpatch.Patch(gzBuf.Bytes(), []byte(`{}`))
	Expect(err).NotTo(BeNil())
}

func TestVerifyPatchedRejectsUnpatchedInitrd(t *testing.T) {
	RegisterTestingT(t)
	original := buildFixtureInitrd(t, nil)
	err := initrdpatch.VerifyPatched(original)
	Expect(err).NotTo(BeNil())
}
