package shim_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/shim"
)

func TestLoadEmbeddedDecompressesBothBlobs(t *testing.T) {
	RegisterTestingT(t)
	shimBlob, mmBlob, err := shim.LoadEmbedded()
	Expect(err).To(BeNil())
	Expect(shimBlob.Data).NotTo(BeEmpty())
	Expect(mmBlob.Data).NotTo(BeEmpty())
}

func TestMokManagerSearchPathIsFixed(t *testing.T) {
	RegisterTestingT(t)
	shimBlob, _, err := shim.LoadEmbedded()
	Expect(err).To(BeNil())
	Expect(shim.MokManagerSearchPath(shimBlob)).To(Equal(`\MokManager.efi`))
}

func TestValidateRejectsBlobWithoutSbatSection(t *testing.T) {
	RegisterTestingT(t)
	// The placeholder embedded asset is plain text, not a PE image with
	// an .sbat section, so validation must fail closed rather than
	// silently accept it.
	shimBlob, _, err := shim.LoadEmbedded()
	Expect(err).To(BeNil())

	_, err = shim.Validate(shimBlob)
	Expect(err).NotTo(BeNil())
}
