package sbat_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/sbat"
)

func TestParseBasicVector(t *testing.T) {
	RegisterTestingT(t)
	raw := []byte("shim,4,UEFI shim,https://example.com,shim,15.7,https://example.com\ngrub,1,Free Software Foundation,https://gnu.org,grub,2.06,https://gnu.org\n")

	v, err := sbat.Parse(raw)
	Expect(err).To(BeNil())
	Expect(v).To(HaveLen(2))

	gen, ok := v.Generation("shim")
	Expect(ok).To(BeTrue())
	Expect(gen).To(Equal(4))
}

func TestRequireMinimumShimGenerationRejectsOld(t *testing.T) {
	RegisterTestingT(t)
	v, err := sbat.Parse([]byte("shim,2,UEFI shim\n"))
	Expect(err).To(BeNil())

	Expect(sbat.RequireMinimumShimGeneration(v)).NotTo(BeNil())
}

func TestRequireMinimumShimGenerationAcceptsCurrent(t *testing.T) {
	RegisterTestingT(t)
	v, err := sbat.Parse([]byte("shim,4,UEFI shim\n"))
	Expect(err).To(BeNil())

	Expect(sbat.RequireMinimumShimGeneration(v)).To(BeNil())
}

func TestRenderRoundTrips(t *testing.T) {
	RegisterTestingT(t)
	v := sbat.Vector{
		{Component: "grub", Generation: 1},
		{Component: "photon-stub", Generation: 1},
	}
	rendered := sbat.Render(v)

	parsed, err := sbat.Parse(rendered)
	Expect(err).To(BeNil())
	Expect(parsed).To(Equal(v))
}

func TestParseRejectsEmptySection(t *testing.T) {
	RegisterTestingT(t)
	_, err := sbat.Parse([]byte{})
	Expect(err).NotTo(BeNil())
}
