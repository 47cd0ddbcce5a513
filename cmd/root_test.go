/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestNewRootCmdRegistersAllSubcommands(t *testing.T) {
	RegisterTestingT(t)
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"build-iso", "diagnose", "check-certs", "generate-keys", "clean", "create-efuse-usb", "version"} {
		Expect(names[want]).To(BeTrue(), "missing subcommand %s", want)
	}
}

func TestNewRootCmdDeclaresPersistentFlags(t *testing.T) {
	RegisterTestingT(t)
	root := NewRootCmd()

	Expect(root.PersistentFlags().Lookup("keys-dir")).NotTo(BeNil())
	Expect(root.PersistentFlags().Lookup("debug")).NotTo(BeNil())
}

func TestCreateEfuseUSBRefusesWithoutYes(t *testing.T) {
	RegisterTestingT(t)
	root := NewRootCmd()
	root.SetArgs([]string{"create-efuse-usb", "/dev/fake", "--keys-dir", t.TempDir()})
	root.SetOut(nil)

	err := root.Execute()
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("--yes"))
}

func TestCheckCertsCmdDefaultWarnWindow(t *testing.T) {
	RegisterTestingT(t)
	c := NewCheckCertsCmd()
	flag := c.Flags().Lookup("cert-warn")
	Expect(flag).NotTo(BeNil())
	Expect(flag.DefValue).To(Equal("30"))
}

func TestCleanCmdUsesDistinctKeysFlagName(t *testing.T) {
	RegisterTestingT(t)
	c := NewCleanCmd()
	Expect(c.Flags().Lookup("keys-dir-clean")).NotTo(BeNil())
	// clean must never accidentally bind the persistent --keys-dir flag
	// of the build/generate commands, so it declares its own name.
	Expect(c.Flags().Lookup("keys-dir")).To(BeNil())
}

func TestGenerateKeysCmdFlags(t *testing.T) {
	RegisterTestingT(t)
	c := NewGenerateKeysCmd()
	Expect(c.Flags().Lookup("key-bits").DefValue).To(Equal("2048"))
	Expect(c.Flags().Lookup("mok-days").DefValue).To(Equal("3650"))
}
