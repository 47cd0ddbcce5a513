package keymanager

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "key-manager"

// EnsureMok loads an existing MOK.key/MOK.crt/MOK.der triple from dir,
// or generates a fresh RSA keypair and self-signed certificate when none
// exists. Existing keys are never regenerated.
//
// Key generation uses crypto/rsa and crypto/x509 directly: no library in
// the retrieval pack wraps self-signed certificate issuance (secboot's
// and nullboot's crypto surface is TPM sealing and Authenticode parsing,
// not CA-less cert minting), so the standard library is the right tool
// at this boundary.
func EnsureMok(cfg *config.Config, owner string, bits, days int) (*MokKeypair, error) {
	dir := cfg.Keys.Path
	keyPath := filepath.Join(dir, MokKeyFile)
	crtPath := filepath.Join(dir, MokCrtFile)
	derPath := filepath.Join(dir, MokDerFile)

	haveKey, _ := exists(cfg, keyPath)
	haveCrt, _ := exists(cfg, crtPath)
	haveDer, _ := exists(cfg, derPath)

	if haveKey && haveCrt && haveDer {
		return loadMok(cfg, keyPath, crtPath, derPath)
	}
	if haveKey || haveCrt || haveDer {
		return nil, mokerror.New(mokerror.KeyFormat, stage, dir,
			fmt.Errorf("partial MOK state: key=%v crt=%v der=%v", haveKey, haveCrt, haveDer))
	}

	cfg.Logger.Infof("generating new MOK keypair (%d bits, %d day validity)", bits, days)
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, dir, err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, dir, err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: fmt.Sprintf("%s MOK", owner)},
		NotBefore:    now,
		NotAfter:     now.AddDate(0, 0, days),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, dir, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, dir, err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, dir, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	if err := writeKeyMaterial(cfg, keyPath, keyPEM, 0o600); err != nil {
		return nil, err
	}
	if err := writeKeyMaterial(cfg, crtPath, certPEM, 0o644); err != nil {
		return nil, err
	}
	if err := writeKeyMaterial(cfg, derPath, der, 0o644); err != nil {
		return nil, err
	}

	return &MokKeypair{
		Private:    priv,
		Cert:       cert,
		PrivatePEM: keyPEM,
		CertPEM:    certPEM,
		CertDER:    der,
	}, nil
}

func loadMok(cfg *config.Config, keyPath, crtPath, derPath string) (*MokKeypair, error) {
	keyPEM, err := cfg.Fs.ReadFile(keyPath)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, keyPath, err)
	}
	certPEM, err := cfg.Fs.ReadFile(crtPath)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, crtPath, err)
	}
	der, err := cfg.Fs.ReadFile(derPath)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, derPath, err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, keyPath, fmt.Errorf("not PEM"))
	}
	priv, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, keyPath, err)
	}
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, mokerror.New(mokerror.KeyFormat, stage, keyPath, fmt.Errorf("not an RSA key"))
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, crtPath, fmt.Errorf("not PEM"))
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, crtPath, err)
	}

	derCert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, derPath, err)
	}
	if derCert.SerialNumber.Cmp(cert.SerialNumber) != 0 {
		return nil, mokerror.New(mokerror.KeyFormat, stage, derPath,
			fmt.Errorf("DER and PEM certificates encode different key material"))
	}

	return &MokKeypair{
		Private:    rsaPriv,
		Cert:       cert,
		PrivatePEM: keyPEM,
		CertPEM:    certPEM,
		CertDER:    der,
	}, nil
}

func writeKeyMaterial(cfg *config.Config, path string, data []byte, mode os.FileMode) error {
	if err := cfg.Fs.WriteFile(path, data, mode); err != nil {
		return mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	return nil
}

func exists(cfg *config.Config, path string) (bool, error) {
	_, err := cfg.Fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
