package keymanager

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// EnsureModuleSigningKey generates (or loads) a dedicated 4096-bit RSA
// key used to sign kernel modules, concatenating the private key and a
// self-signed certificate into a single PEM file as the kernel build
// system (scripts/sign-file) expects.
func EnsureModuleSigningKey(cfg *config.Config) (*rsa.PrivateKey, error) {
	path := filepath.Join(cfg.Keys.Path, ModuleSigningFile)

	if ok, _ := exists(cfg, path); ok {
		data, err := cfg.Fs.ReadFile(path)
		if err != nil {
			return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
		}
		block, rest := pem.Decode(data)
		if block == nil || block.Type != "PRIVATE KEY" {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, fmt.Errorf("missing private key block"))
		}
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, fmt.Errorf("not an RSA key"))
		}
		if certBlock, _ := pem.Decode(rest); certBlock == nil {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, fmt.Errorf("missing certificate block"))
		}
		return rsaKey, nil
	}

	priv, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "Photon MOK Kernel Module Signing"},
		NotBefore:    now,
		NotAfter:     now.AddDate(20, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		IsCA:         false,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}

	combined := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	combined = append(combined, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)

	if err := cfg.Fs.WriteFile(path, combined, 0o600); err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	return priv, nil
}
