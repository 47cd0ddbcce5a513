/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package verify

import (
	"bytes"
	"compress/gzip"
	"crypto/x509"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"

	"github.com/vmware/photon-mokboot/pkg/authenticode"
	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/initrdpatch"
	"github.com/vmware/photon-mokboot/pkg/sbat"
	"github.com/vmware/photon-mokboot/pkg/shim"
)

// tree bundles what every check needs: the mounted ISO's root
// directory and the separately-mounted efiboot.img's root directory,
// plus the MOK certificate the build claims to have signed with.
type tree struct {
	cfg      *config.Config
	isoRoot  string
	espRoot  string
	mokCert  *x509.Certificate
}

func checkMokManagerRoot(t tree) Finding {
	const name = "root-mokmanager"
	path := filepath.Join(t.isoRoot, "MokManager.efi")
	if _, err := t.cfg.Fs.Stat(path); err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	return Finding{Check: name, Status: StatusOK}
}

func checkEfiBootQuad(t tree) Finding {
	const name = "efi-boot-quad"
	for _, f := range []string{"BOOTX64.EFI", "grub.efi", "grubx64.efi", "MokManager.efi"} {
		path := filepath.Join(t.isoRoot, "EFI", "BOOT", f)
		if _, err := t.cfg.Fs.Stat(path); err != nil {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("missing %s: %v", f, err)}
		}
	}
	return Finding{Check: name, Status: StatusOK}
}

func checkShimSbatAndSigner(t tree) Finding {
	const name = "shim-sbat-signer"
	path := filepath.Join(t.isoRoot, "EFI", "BOOT", "BOOTX64.EFI")
	data, err := t.cfg.Fs.ReadFile(path)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}

	vec, err := sbat.Read(data)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	if err := sbat.RequireMinimumShimGeneration(vec); err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}

	root, err := shim.TrustedMicrosoftRoot()
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	ok, err := authenticode.VerifyIssuedByBytes(data, path, root)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	if !ok {
		return Finding{Check: name, Status: StatusFail, Detail: "no signer chains to Microsoft Corporation UEFI CA 2011"}
	}
	return Finding{Check: name, Status: StatusOK}
}

func checkGrubStubSignature(t tree) Finding {
	const name = "grub-stub-signature"
	if t.mokCert == nil {
		return Finding{Check: name, Status: StatusWarn, Detail: "no MOK certificate supplied to verify against"}
	}
	path := filepath.Join(t.isoRoot, "EFI", "BOOT", "grub.efi")
	ok, err := authenticode.VerifyIssuedBy(path, t.mokCert)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	if !ok {
		return Finding{Check: name, Status: StatusFail, Detail: "grub.efi does not verify against the MOK certificate"}
	}
	return Finding{Check: name, Status: StatusOK}
}

// dualPlacedNames is the exact P1 set from the testable properties.
var dualPlacedNames = []string{
	"BOOTX64.EFI", "grub.efi", "grubx64.efi", "MokManager.efi",
	"grubx64_real.efi", "ENROLL_THIS_KEY_IN_MOKMANAGER.cer",
}

func checkDualPlacement(t tree) Finding {
	const name = "dual-placement"
	if t.espRoot == "" {
		return Finding{Check: name, Status: StatusWarn, Detail: "efiboot.img not mounted for this run"}
	}
	for _, f := range dualPlacedNames {
		isoPath := filepath.Join(t.isoRoot, "EFI", "BOOT", f)
		espPath := filepath.Join(t.espRoot, "EFI", "BOOT", f)
		if f == "ENROLL_THIS_KEY_IN_MOKMANAGER.cer" || f == "MokManager.efi" {
			isoPath = filepath.Join(t.isoRoot, f)
			espPath = filepath.Join(t.espRoot, f)
		}
		isoData, err := t.cfg.Fs.ReadFile(isoPath)
		if err != nil {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("%s: %v", f, err)}
		}
		espData, err := t.cfg.Fs.ReadFile(espPath)
		if err != nil {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("%s (esp): %v", f, err)}
		}
		if !bytes.Equal(isoData, espData) {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("%s differs between ISO root and efiboot.img", f)}
		}
	}
	return Finding{Check: name, Status: StatusOK}
}

func checkMokCertDER(t tree) Finding {
	const name = "mok-cert-der"
	path := filepath.Join(t.isoRoot, "ENROLL_THIS_KEY_IN_MOKMANAGER.cer")
	data, err := t.cfg.Fs.ReadFile(path)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("not a valid DER certificate: %v", err)}
	}
	if t.mokCert != nil && !bytes.Equal(cert.Raw, t.mokCert.Raw) {
		return Finding{Check: name, Status: StatusFail, Detail: "enrolled cert does not match the MOK certificate"}
	}
	return Finding{Check: name, Status: StatusOK}
}

// repomdMetadata is the minimal repomd.xml shape this check needs:
// package locations listed under <data><location href="..."/></data>.
type repomdMetadata struct {
	XMLName xml.Name `xml:"repomd"`
	Data    []struct {
		Type     string `xml:"type,attr"`
		Location struct {
			Href string `xml:"href,attr"`
		} `xml:"location"`
	} `xml:"data"`
}

// primaryMetadata is the createrepo_c primary.xml shape this check
// needs: every package's repo-relative location, the thing that
// actually changes when createrepo_c --update regenerates repodata.
type primaryMetadata struct {
	XMLName  xml.Name `xml:"metadata"`
	Packages []struct {
		Location struct {
			Href string `xml:"href,attr"`
		} `xml:"location"`
	} `xml:"package"`
}

func checkRepodataListsMokRpms(t tree, arch string, expectedMokRpms []string) Finding {
	const name = "repodata-mok-rpms"
	poolDir := filepath.Join(t.isoRoot, "RPMS", arch)
	repodataDir := filepath.Join(poolDir, "repodata")
	repomdPath := filepath.Join(repodataDir, "repomd.xml")
	data, err := t.cfg.Fs.ReadFile(repomdPath)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	var meta repomdMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("parse repomd.xml: %v", err)}
	}
	if len(meta.Data) == 0 {
		return Finding{Check: name, Status: StatusFail, Detail: "repomd.xml lists no metadata entries"}
	}

	var primaryHref string
	for _, d := range meta.Data {
		if d.Type == "primary" {
			primaryHref = d.Location.Href
			break
		}
	}
	if primaryHref == "" {
		return Finding{Check: name, Status: StatusFail, Detail: "repomd.xml lists no primary metadata entry"}
	}

	listed, err := readPrimaryLocations(t, poolDir, primaryHref)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}

	for _, rpm := range expectedMokRpms {
		if _, err := t.cfg.Fs.Stat(filepath.Join(poolDir, rpm)); err != nil {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("missing %s from RPM pool", rpm)}
		}
		if !listed[rpm] {
			return Finding{Check: name, Status: StatusFail, Detail: fmt.Sprintf("%s is on disk but not listed in repodata's primary metadata", rpm)}
		}
	}
	return Finding{Check: name, Status: StatusOK}
}

// readPrimaryLocations reads and decompresses the primary metadata file
// repomd.xml points at (href is repo-relative, e.g.
// "repodata/primary.xml.gz") and returns the set of RPM filenames it
// lists, keyed by filepath.Base so callers can match regardless of the
// repo-relative directory prefix createrepo_c records.
func readPrimaryLocations(t tree, poolDir, href string) (map[string]bool, error) {
	raw, err := t.cfg.Fs.ReadFile(filepath.Join(poolDir, href))
	if err != nil {
		return nil, fmt.Errorf("read primary metadata: %w", err)
	}
	if filepath.Ext(href) == ".gz" {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decompress primary metadata: %w", err)
		}
		defer gz.Close()
		raw, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("decompress primary metadata: %w", err)
		}
	}

	var primary primaryMetadata
	if err := xml.Unmarshal(raw, &primary); err != nil {
		return nil, fmt.Errorf("parse primary metadata: %w", err)
	}

	listed := make(map[string]bool, len(primary.Packages))
	for _, pkg := range primary.Packages {
		listed[filepath.Base(pkg.Location.Href)] = true
	}
	return listed, nil
}

func checkPatchedInitrd(t tree) Finding {
	const name = "patched-initrd"
	path := filepath.Join(t.isoRoot, "isolinux", "initrd.img")
	data, err := t.cfg.Fs.ReadFile(path)
	if err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	if err := initrdpatch.VerifyPatched(data); err != nil {
		return Finding{Check: name, Status: StatusFail, Detail: err.Error()}
	}
	return Finding{Check: name, Status: StatusOK}
}
