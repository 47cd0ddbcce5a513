package keymanager

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// ExpiryStatus classifies a certificate's remaining validity window.
type ExpiryStatus string

const (
	ExpiryOK      ExpiryStatus = "ok"
	ExpiryWarn    ExpiryStatus = "warn"
	ExpiryExpired ExpiryStatus = "expired"
)

// expiryWarnWindow is how far ahead of NotAfter a certificate moves
// from ok to warn, matching the check-certs command's default.
const expiryWarnWindow = 30 * 24 * time.Hour

// CertStatus reports one certificate's expiry classification.
type CertStatus struct {
	Path    string
	Subject string
	NotAfter time.Time
	Status  ExpiryStatus
}

// CheckExpiry enumerates every *.crt file under the keys-dir and
// classifies it ok/warn/expired relative to now, using the default
// 30-day warn window.
func CheckExpiry(cfg *config.Config, now time.Time) ([]CertStatus, error) {
	return CheckExpiryWindow(cfg, now, expiryWarnWindow)
}

// CheckExpiryWindow is CheckExpiry with a caller-supplied warn window,
// for the check-certs command's --cert-warn <days> flag.
func CheckExpiryWindow(cfg *config.Config, now time.Time, warnWindow time.Duration) ([]CertStatus, error) {
	entries, err := cfg.Fs.ReadDir(cfg.Keys.Path)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, cfg.Keys.Path, err)
	}

	var statuses []CertStatus
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".crt") {
			continue
		}
		path := filepath.Join(cfg.Keys.Path, e.Name())
		data, err := cfg.Fs.ReadFile(path)
		if err != nil {
			return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
		}
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, fmt.Errorf("not PEM"))
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, mokerror.New(mokerror.KeyFormat, stage, path, err)
		}

		status := ExpiryOK
		switch {
		case now.After(cert.NotAfter):
			status = ExpiryExpired
		case cert.NotAfter.Sub(now) <= warnWindow:
			status = ExpiryWarn
		}

		statuses = append(statuses, CertStatus{
			Path:     path,
			Subject:  cert.Subject.CommonName,
			NotAfter: cert.NotAfter,
			Status:   status,
		})
	}
	return statuses, nil
}
