/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

func newTestCmdWithKeysDir(t *testing.T, keysDir string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().String("keys-dir", "", "")
	if keysDir != "" {
		Expect(c.Flags().Set("keys-dir", keysDir)).To(BeNil())
	}
	return c
}

func TestBuildConfigRequiresKeysDir(t *testing.T) {
	RegisterTestingT(t)
	c := newTestCmdWithKeysDir(t, "")

	_, err := buildConfig(c, "")
	Expect(err).To(HaveOccurred())

	var mokErr *mokerror.MokError
	Expect(errors.As(err, &mokErr)).To(BeTrue())
	Expect(mokErr.Kind).To(Equal(mokerror.InputValidation))
}

func TestBuildConfigPopulatesKeysDirAndRelease(t *testing.T) {
	RegisterTestingT(t)
	dir := t.TempDir()
	c := newTestCmdWithKeysDir(t, dir)

	cfg, err := buildConfig(c, "5.0")
	Expect(err).To(BeNil())
	Expect(cfg.Keys.Path).To(Equal(dir))
	Expect(cfg.Release).To(Equal("5.0"))
	Expect(cfg.TmpDir).NotTo(BeEmpty())
}

func TestBuildConfigUsesTmpDirEnvOverride(t *testing.T) {
	RegisterTestingT(t)
	dir := t.TempDir()
	c := newTestCmdWithKeysDir(t, dir)

	override := t.TempDir()
	t.Setenv("TMPDIR", override)

	cfg, err := buildConfig(c, "")
	Expect(err).To(BeNil())
	Expect(cfg.TmpDir).To(Equal(override))
}
