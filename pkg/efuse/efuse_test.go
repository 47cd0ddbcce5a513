/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package efuse_test

import (
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/efuse"
	"github.com/vmware/photon-mokboot/pkg/types"
)

type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) GetLogger() types.Logger { return nil }
func (r *recordingRunner) Run(cmd string, args ...string) ([]byte, error) {
	return r.RunContext(context.Background(), cmd, args...)
}
func (r *recordingRunner) RunContext(_ context.Context, cmd string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, cmd+" "+strings.Join(args, " "))
	return []byte(""), nil
}

func TestBuildWritesAllThreePayloadFiles(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	runner := &recordingRunner{}
	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(runner))
	cfg.TmpDir = fs.TempDir()

	srk := []byte("fake-srk-public-key-der-bytes")
	err = efuse.Build(cfg, efuse.Config{SRKPublicKeyDER: srk, SecConfig: efuse.SecConfigClosed}, fs.TempDir()+"/efuse.img")
	Expect(err).To(BeNil())

	mcopyCalls := 0
	for _, c := range runner.calls {
		if strings.HasPrefix(c, "mcopy") {
			mcopyCalls++
		}
	}
	Expect(mcopyCalls).To(Equal(3))
}

func TestBuildRejectsEmptySRK(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()), config.WithRunner(&recordingRunner{}))
	cfg.TmpDir = fs.TempDir()

	err = efuse.Build(cfg, efuse.Config{SecConfig: efuse.SecConfigOpen}, fs.TempDir()+"/efuse.img")
	Expect(err).NotTo(BeNil())
}

func TestSecConfigStringsMatchOpenClosed(t *testing.T) {
	RegisterTestingT(t)
	Expect(efuse.SecConfigOpen.String()).To(Equal("open"))
	Expect(efuse.SecConfigClosed.String()).To(Equal("closed"))
}

func TestSRKSHA256DigestIs32Bytes(t *testing.T) {
	RegisterTestingT(t)
	srk := []byte("fake-srk-public-key-der-bytes")
	want := sha256.Sum256(srk)
	Expect(len(want)).To(Equal(32))
}
