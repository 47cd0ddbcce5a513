package keymanager_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/types"
)

func TestEnsureMokGeneratesFreshKeypair(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{"keys": &vfst.Dir{Perm: 0o700}})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithKeysDir(fs.TempDir()+"/keys"),
	)

	keypair, err := keymanager.EnsureMok(cfg, "Photon OS", 2048, 365)
	Expect(err).To(BeNil())
	Expect(keypair.Cert.Subject.CommonName).To(Equal("Photon OS MOK"))
	Expect(keypair.Cert.IsCA).To(BeTrue())
}

func TestEnsureMokLoadsExistingKeypair(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{"keys": &vfst.Dir{Perm: 0o700}})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithKeysDir(fs.TempDir()+"/keys"),
	)

	first, err := keymanager.EnsureMok(cfg, "Photon OS", 2048, 365)
	Expect(err).To(BeNil())

	second, err := keymanager.EnsureMok(cfg, "Photon OS", 2048, 365)
	Expect(err).To(BeNil())
	Expect(second.Cert.SerialNumber.Cmp(first.Cert.SerialNumber)).To(Equal(0))
}

func TestEnsureMokRejectsPartialState(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
		"keys": map[string]interface{}{
			"MOK.key": "not a real key",
		},
	})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithKeysDir(fs.TempDir()+"/keys"),
	)

	_, err = keymanager.EnsureMok(cfg, "Photon OS", 2048, 365)
	Expect(err).NotTo(BeNil())
}

func TestCheckExpiryClassifiesWindows(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{"keys": &vfst.Dir{Perm: 0o700}})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithKeysDir(fs.TempDir()+"/keys"),
	)

	_, err = keymanager.EnsureMok(cfg, "Photon OS", 2048, 1)
	Expect(err).To(BeNil())

	statuses, err := keymanager.CheckExpiry(cfg, time.Now())
	Expect(err).To(BeNil())
	Expect(statuses).To(HaveLen(1))
	Expect(statuses[0].Status).To(Equal(keymanager.ExpiryWarn))
}
