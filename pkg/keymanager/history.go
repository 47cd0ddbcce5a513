package keymanager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// HistoryEntry records one rebuild: the source and output ISO digests
// and the MOK fingerprint used to sign it, so a later diagnose run can
// explain which key produced which ISO. GrubVersion and SbsignVersion
// are optional; pipeline.Run leaves them empty.
type HistoryEntry struct {
	Timestamp    string `json:"timestamp"`
	InputSHA256  string `json:"input_sha256"`
	OutputSHA256 string `json:"output_sha256"`
	MokSerial    string `json:"mok_serial"`
	MokSHA256    string `json:"mok_sha256"`
	GrubVersion  string `json:"grub_version,omitempty"`
	SbsignVersion string `json:"sbsign_version,omitempty"`
}

// History is the append-only mok_history.json content.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// LoadHistory reads mok_history.json from the keys-dir, returning an
// empty History if the file doesn't exist yet.
func LoadHistory(cfg *config.Config) (*History, error) {
	path := filepath.Join(cfg.Keys.Path, HistoryFile)
	ok, err := exists(cfg, path)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	if !ok {
		return &History{}, nil
	}
	data, err := cfg.Fs.ReadFile(path)
	if err != nil {
		return nil, mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, mokerror.New(mokerror.KeyFormat, stage, path, err)
	}
	return &h, nil
}

// AppendHistory appends entry as given to the loaded history and
// rewrites mok_history.json. Earlier entries are kept unchanged and
// nothing is deduplicated: a rebuild with the same inputs produces a
// duplicate entry with the caller's new timestamp, since the timestamp
// itself is part of what's useful to an operator debugging "which run
// produced this artifact".
func AppendHistory(cfg *config.Config, entry HistoryEntry) error {
	h, err := LoadHistory(cfg)
	if err != nil {
		return err
	}
	h.Entries = append(h.Entries, entry)

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return mokerror.New(mokerror.KeyFormat, stage, HistoryFile, err)
	}
	path := filepath.Join(cfg.Keys.Path, HistoryFile)
	if err := cfg.Fs.WriteFile(path, data, 0o644); err != nil {
		return mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	return nil
}

// Fingerprint returns the hex SHA-256 of a MOK's DER certificate, used
// as the key identity recorded in history entries.
func Fingerprint(keypair *MokKeypair) string {
	sum := sha256.Sum256(keypair.CertDER)
	return hex.EncodeToString(sum[:])
}

// DigestFile returns the hex SHA-256 of a file's contents, used to
// content-address the input and output ISOs in a history entry.
func DigestFile(cfg *config.Config, path string) (string, error) {
	data, err := cfg.Fs.ReadFile(path)
	if err != nil {
		return "", mokerror.New(mokerror.KeyIo, stage, path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
