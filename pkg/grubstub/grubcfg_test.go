package grubstub_test

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/grubstub"
)

func TestRenderConfigStandardVariant(t *testing.T) {
	RegisterTestingT(t)
	text, err := grubstub.RenderConfig("Photon OS", false)
	Expect(err).To(BeNil())
	Expect(string(text)).To(ContainSubstring("Continue to Photon OS Installer"))
	Expect(string(text)).To(ContainSubstring("MokManager - Enroll/Delete MOK Keys"))
	Expect(string(text)).NotTo(ContainSubstring("EFUSE_SIM"))
}

func TestRenderConfigEfuseVariant(t *testing.T) {
	RegisterTestingT(t)
	text, err := grubstub.RenderConfig("Photon OS", true)
	Expect(err).To(BeNil())
	Expect(string(text)).To(ContainSubstring("EFUSE_SIM"))
	Expect(string(text)).To(ContainSubstring("efuse_sim/srk_fuse.bin"))
	Expect(strings.Contains(string(text), "Retry")).To(BeTrue())
}
