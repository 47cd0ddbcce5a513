/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package isobuild_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"strings"
	"testing"

	"github.com/cavaliercoder/go-cpio"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/isobuild"
	"github.com/vmware/photon-mokboot/pkg/types"
)

func buildFixtureInitrd(t *testing.T) []byte {
	t.Helper()
	var cpioBuf bytes.Buffer
	w := cpio.NewWriter(&cpioBuf)
	files := map[string]string{
		"installer/build_install_options_all.json": `{"minimal": {"title": "Minimal", "visible": true, "packages_json": "packages_minimal.json"}}`,
		"installer/kernel_flavors.json":             `{"linux": "Generic"}`,
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
	gz.Write(cpioBuf.Bytes())
	gz.Close()
	return gzBuf.Bytes()
}

type noopRunner struct{}

func (noopRunner) GetLogger() types.Logger { return nil }
func (noopRunner) Run(cmd string, args ...string) ([]byte, error) {
	return []byte(""), nil
}
func (noopRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	return []byte(""), nil
}

func TestRebuildRootMirrorsDualPlacedFilesAndPatchesInitrd(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(noopRunner{}))

	req := isobuild.Request{
		Shim:        []byte("shim-bytes"),
		MokManager:  []byte("mm-bytes"),
		GrubStub:    []byte("stub-bytes"),
		MokCertDER:  []byte("cert-bytes"),
		Vmlinuz:     []byte("vmlinuz-bytes"),
		InitrdOrig:  buildFixtureInitrd(t),
		PackagesMok: []byte(`{"packages": ["grub2-efi-image-mok"]}`),
	}

	rootDir := fs.TempDir() + "/root"
	result, err := isobuild.RebuildRoot(cfg, req, rootDir, []byte("grub-real-bytes"))
	Expect(err).To(BeNil())
	Expect(result.Data).NotTo(BeEmpty())

	bootx64, err := fs.ReadFile(rootDir + "/EFI/BOOT/BOOTX64.EFI")
	Expect(err).To(BeNil())
	Expect(string(bootx64)).To(Equal("shim-bytes"))

	grubEfi, err := fs.ReadFile(rootDir + "/EFI/BOOT/grub.efi")
	Expect(err).To(BeNil())
	grubX64, err := fs.ReadFile(rootDir + "/EFI/BOOT/grubx64.efi")
	Expect(err).To(BeNil())
	Expect(grubEfi).To(Equal(grubX64))

	mainCfg, err := fs.ReadFile(rootDir + "/boot/grub2/grub.cfg")
	Expect(err).To(BeNil())
	Expect(string(mainCfg)).To(ContainSubstring("menuentry \"Install\""))

	vmlinuz, err := fs.ReadFile(rootDir + "/isolinux/vmlinuz")
	Expect(err).To(BeNil())
	Expect(string(vmlinuz)).To(Equal("vmlinuz-bytes"))
}

func TestXorrisoBootArgsCoverBothFirmwares(t *testing.T) {
	RegisterTestingT(t)
	// exercised indirectly through Author's arg construction; assert on
	// the literal boot catalog / isohybrid markers the verifier's ISO
	// layout checks rely on existing in the xorriso invocation.
	joined := strings.Join(isobuildAuthorProbeArgs(), " ")
	Expect(joined).To(ContainSubstring("boot.catalog"))
	Expect(joined).To(ContainSubstring("isohybrid-gpt-basdat"))
	Expect(joined).To(ContainSubstring("appended_part_as=gpt"))
}

// isobuildAuthorProbeArgs calls Author against an in-memory FS whose
// runner just records the xorriso invocation, since xorrisoBootArgs
// itself is unexported.
func isobuildAuthorProbeArgs() []string {
	r := &recordingRunner{}
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{"out.iso": "x"})
	if err != nil {
		return nil
	}
	defer cleanup()
	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(r))
	_, _ = isobuild.Author(cfg, fs.TempDir(), "PHOTON", "", fs.TempDir()+"/out.iso")
	return r.lastArgs
}

type recordingRunner struct {
	lastArgs []string
}

func (r *recordingRunner) GetLogger() types.Logger { return nil }
func (r *recordingRunner) Run(cmd string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), cmd, args...)
}
func (r *recordingRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	r.lastArgs = args
	return []byte(""), nil
}
