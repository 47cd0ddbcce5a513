package keymanager_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/keymanager"
	"github.com/vmware/photon-mokboot/pkg/types"
)

func TestHistoryAppendIsCumulative(t *testing.T) {
	RegisterTestingT(t)
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{"keys": &vfst.Dir{Perm: 0o700}})
	Expect(err).To(BeNil())
	defer cleanup()

	cfg := config.New(
		config.WithFs(fs),
		config.WithLogger(types.NewNullLogger()),
		config.WithKeysDir(fs.TempDir()+"/keys"),
	)

	h, err := keymanager.LoadHistory(cfg)
	Expect(err).To(BeNil())
	Expect(h.Entries).To(BeEmpty())

	err = keymanager.AppendHistory(cfg, keymanager.HistoryEntry{
		Timestamp:    "2026-08-01T00:00:00Z",
		InputSHA256:  "aaa",
		OutputSHA256: "bbb",
		MokSerial:    "1",
		MokSHA256:    "ccc",
	})
	Expect(err).To(BeNil())

	h, err = keymanager.LoadHistory(cfg)
	Expect(err).To(BeNil())
	Expect(h.Entries).To(HaveLen(1))

	err = keymanager.AppendHistory(cfg, keymanager.HistoryEntry{
		Timestamp:    "2026-08-02T00:00:00Z",
		InputSHA256:  "aaa",
		OutputSHA256: "ddd",
		MokSerial:    "1",
		MokSHA256:    "ccc",
	})
	Expect(err).To(BeNil())

	h, err = keymanager.LoadHistory(cfg)
	Expect(err).To(BeNil())
	Expect(h.Entries).To(HaveLen(2))
}

func TestFingerprintIsStableForSameKey(t *testing.T) {
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

	fp1 := keymanager.Fingerprint(keypair)
	reloaded, err := keymanager.EnsureMok(cfg, "Photon OS", 2048, 365)
	Expect(err).To(BeNil())
	fp2 := keymanager.Fingerprint(reloaded)

	Expect(fp1).To(Equal(fp2))
	Expect(fp1).To(HaveLen(64))
}
