/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/pipeline"
	"github.com/vmware/photon-mokboot/pkg/types"
)

func TestAcquireScratchLockRejectsConcurrentOwner(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(config.WithFs(fs), config.WithLogger(types.NewNullLogger()))
	root := fs.TempDir() + "/scratch"

	release, err := pipeline.AcquireScratchLock(cfg, root)
	Expect(err).To(BeNil())
	Expect(release).NotTo(BeNil())

	_, err = pipeline.AcquireScratchLock(cfg, root)
	Expect(err).NotTo(BeNil())

	release()

	release2, err := pipeline.AcquireScratchLock(cfg, root)
	Expect(err).To(BeNil())
	release2()
}
