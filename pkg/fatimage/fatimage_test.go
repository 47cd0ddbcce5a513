/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fatimage_test

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/fatimage"
	"github.com/vmware/photon-mokboot/pkg/types"
)

type recordingRunner struct {
	calls   []string
	fullAt  int
	nthCall int
}

func (r *recordingRunner) GetLogger() types.Logger { return nil }

func (r *recordingRunner) Run(cmd string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), cmd, args...)
}

func (r *recordingRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, cmd+" "+strings.Join(args, " "))
	if cmd == "mcopy" {
		r.nthCall++
		if r.fullAt != 0 {
			return []byte("mcopy: write failed: No space left on device"), errMcopy{}
		}
	}
	return []byte(""), nil
}

type errMcopy struct{}

func (errMcopy) Error() string { return "exit status 1" }

func TestBuildPopulatesEveryFile(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	runner := &recordingRunner{}
	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(runner))
	cfg.TmpDir = fs.TempDir()

	files := []fatimage.File{
		{Path: "/EFI/BOOT/BOOTX64.EFI", Data: []byte("shim")},
		{Path: "/MokManager.efi", Data: []byte("mm")},
	}
	err = fatimage.Build(cfg, fs.TempDir()+"/efiboot.img", files)
	Expect(err).To(BeNil())

	mcopyCalls := 0
	for _, c := range runner.calls {
		if strings.HasPrefix(c, "mcopy") {
			mcopyCalls++
		}
	}
	Expect(mcopyCalls).To(Equal(2))
}

func TestBuildSurfacesEspOverflowAfterRetriesExhausted(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	// every mcopy call reports full, so both the initial attempt and the
	// doubled-size retry fail and Build must surface EspOverflow.
	runner := &recordingRunner{fullAt: 1}
	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(runner))
	cfg.TmpDir = fs.TempDir()

	err = fatimage.Build(cfg, fs.TempDir()+"/efiboot.img", []fatimage.File{{Path: "/a.efi", Data: []byte("x")}})
	Expect(err).NotTo(BeNil())
}
