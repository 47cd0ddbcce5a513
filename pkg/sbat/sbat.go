/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sbat reads and validates the SBAT (Secure Boot Advanced
// Targeting) revocation metadata carried in the ".sbat" PE section of
// shim and GRUB binaries.
package sbat

import (
	"bytes"
	"debug/pe"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

const stage = "sbat"

// Entry is one component,generation pair from a .sbat section.
type Entry struct {
	Component  string
	Generation int
	Vendor     string
	VendorURL  string
	VendorPackage string
	PackageVersion string
	PackageURL string
}

// Vector is the ordered list of entries in a .sbat section.
type Vector []Entry

// Generation returns the generation recorded for component, or 0 (and
// false) if component has no entry.
func (v Vector) Generation(component string) (int, bool) {
	for _, e := range v {
		if e.Component == component {
			return e.Generation, true
		}
	}
	return 0, false
}

// Read extracts and parses the .sbat section from a PE image. Using
// stdlib debug/pe here is deliberate: go-efilib's PE support is scoped
// to Authenticode digesting and certificate-table parsing, and no
// library in the retrieval pack exposes generic named-section lookup
// for an arbitrary PE binary.
func Read(data []byte) (Vector, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("decode PE: %w", err))
	}
	defer f.Close()

	section := f.Section(".sbat")
	if section == nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf(".sbat section not found"))
	}
	raw, err := section.Data()
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("read .sbat: %w", err))
	}
	return Parse(raw)
}

// Parse decodes the CSV-like .sbat text format: one record per line,
// fields component,generation,vendor,vendor_url,package,pkg_version,pkg_url.
// Only component and generation are mandatory; shim's own .sbat omits
// the rest for its self-description record in some builds.
func Parse(raw []byte) (Vector, error) {
	text := strings.TrimRight(strings.TrimSuffix(string(raw), "\x00"), "\x00\n")
	if text == "" {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("empty .sbat section"))
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("parse .sbat csv: %w", err))
	}

	var vec Vector
	for _, rec := range records {
		if len(rec) < 2 {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("short .sbat record: %v", rec))
		}
		gen, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("invalid generation %q: %w", rec[1], err))
		}
		e := Entry{Component: strings.TrimSpace(rec[0]), Generation: gen}
		if len(rec) > 2 {
			e.Vendor = rec[2]
		}
		if len(rec) > 3 {
			e.VendorURL = rec[3]
		}
		if len(rec) > 4 {
			e.VendorPackage = rec[4]
		}
		if len(rec) > 5 {
			e.PackageVersion = rec[5]
		}
		if len(rec) > 6 {
			e.PackageURL = rec[6]
		}
		vec = append(vec, e)
	}
	return vec, nil
}

// MinShimGeneration is the minimum "shim" component generation the
// verifier and Shim Provider both require.
const MinShimGeneration = 4

// RequireMinimumShimGeneration checks the component,generation ≥ 4
// invariant for a shim's own self-description record.
func RequireMinimumShimGeneration(v Vector) error {
	gen, ok := v.Generation("shim")
	if !ok {
		return mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("no shim SBAT record"))
	}
	if gen < MinShimGeneration {
		return mokerror.New(mokerror.ShimInvalid, stage, "", fmt.Errorf("shim generation %d below minimum %d", gen, MinShimGeneration))
	}
	return nil
}

// Render encodes a Vector back into the comma-separated .sbat text
// format, used by the GRUB Stub Builder to embed its own
// self-description ("grub,1\nphoton-stub,1").
func Render(v Vector) []byte {
	var b strings.Builder
	for _, e := range v {
		fields := []string{e.Component, strconv.Itoa(e.Generation)}
		for _, f := range []string{e.Vendor, e.VendorURL, e.VendorPackage, e.PackageVersion, e.PackageURL} {
			if f == "" {
				break
			}
			fields = append(fields, f)
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
