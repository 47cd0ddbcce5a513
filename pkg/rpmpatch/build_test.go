/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
	"github.com/vmware/photon-mokboot/pkg/types"
)

// scriptedRunner answers `rpm -qlp` the way the real tool would for a
// small fixed set of candidate RPMs, letting DiscoverOriginal's
// path-based resolution logic run against real Go code without
// shelling to an actual rpm binary.
type scriptedRunner struct {
	qlp map[string][]string
}

func (r *scriptedRunner) GetLogger() types.Logger { return nil }

func (r *scriptedRunner) Run(cmd string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), cmd, args...)
}

func (r *scriptedRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	if cmd != "rpm" || len(args) < 2 || args[0] != "-qlp" {
		return nil, fmt.Errorf("scriptedRunner: unhandled invocation %s %v", cmd, args)
	}
	rpmPath := args[1]
	for name, paths := range r.qlp {
		if strings.HasSuffix(rpmPath, name) {
			return []byte(strings.Join(paths, "\n")), nil
		}
	}
	return []byte(""), nil
}

func TestDiscoverOriginalMatchesByProvidedPath(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
		"candidates": map[string]interface{}{
			"grub2-efi-image-2.06-1.x86_64.rpm": "rpm-bytes",
			"shim-signed-15-1.x86_64.rpm":       "rpm-bytes",
		},
	})
	Expect(err).To(BeNil())
	defer cleanup()

	runner := &scriptedRunner{
		qlp: map[string][]string{
			"grub2-efi-image-2.06-1.x86_64.rpm": {"/boot/efi/EFI/BOOT/grubx64.efi"},
			"shim-signed-15-1.x86_64.rpm":       {"/boot/efi/EFI/BOOT/bootx64.efi"},
		},
	}
	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithRunner(runner),
	)

	path, err := rpmpatch.DiscoverOriginal(cfg, fs.TempDir()+"/candidates", rpmpatch.VariantGrubStub.ProvidedPath())
	Expect(err).To(BeNil())
	Expect(path).To(ContainSubstring("grub2-efi-image"))
}

func TestDiscoverOriginalFailsWhenNoneProvide(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
		"candidates": map[string]interface{}{
			"unrelated-1.x86_64.rpm": "rpm-bytes",
		},
	})
	Expect(err).To(BeNil())
	defer cleanup()

	runner := &scriptedRunner{qlp: map[string][]string{"unrelated-1.x86_64.rpm": {"/etc/unrelated.conf"}}}
	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(runner))

	_, err = rpmpatch.DiscoverOriginal(cfg, fs.TempDir()+"/candidates", rpmpatch.VariantLinux.ProvidedPath())
	Expect(err).NotTo(BeNil())
}
