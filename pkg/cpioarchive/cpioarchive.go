/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cpioarchive reads and writes cpio newc archives as ordered,
// in-memory entry lists, shared by the initrd patcher (which edits an
// initrd's embedded archive) and the RPM patcher (which unpacks and
// repacks an RPM payload).
package cpioarchive

import (
	"bytes"
	"io"

	"github.com/cavaliercoder/go-cpio"
)

// RegularFileMode is a newc "mode" field for a plain 0644 file.
const RegularFileMode = 0o100644

// Entry is one file in the archive, kept in archive order. Only the
// name, mode and data are kept, so a round-trip without edits keeps
// order and contents but not other header fields such as mtime or
// ownership.
type Entry struct {
	Name string
	Mode int64
	Data []byte
}

// Archive is the ordered, in-memory form of a cpio newc stream.
type Archive struct {
	Entries []Entry
}

func Read(raw []byte) (*Archive, error) {
	r := cpio.NewReader(bytes.NewReader(raw))
	a := &Archive{}
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		a.Entries = append(a.Entries, Entry{
			Name: hdr.Name,
			Mode: int64(hdr.Mode),
			Data: data,
		})
	}
	return a, nil
}

func (a *Archive) Write() ([]byte, error) {
	var buf bytes.Buffer
	w := cpio.NewWriter(&buf)
	for _, e := range a.Entries {
		hdr := &cpio.Header{
			Name: e.Name,
			Mode: cpio.FileMode(e.Mode),
			Size: int64(len(e.Data)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Find returns the index of the named entry, or -1.
func (a *Archive) Find(name string) int {
	for i, e := range a.Entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func (a *Archive) Get(name string) ([]byte, bool) {
	i := a.Find(name)
	if i < 0 {
		return nil, false
	}
	return a.Entries[i].Data, true
}

// Replace overwrites an existing entry's contents, failing if absent.
func (a *Archive) Replace(name string, data []byte) bool {
	i := a.Find(name)
	if i < 0 {
		return false
	}
	a.Entries[i].Data = data
	return true
}

// Insert adds a new regular-file entry, appended after the existing
// ones; cpio newc archives don't require any particular ordering
// beyond the trailing TRAILER!!! record, which the writer emits.
func (a *Archive) Insert(name string, data []byte) {
	a.Entries = append(a.Entries, Entry{Name: name, Mode: RegularFileMode, Data: data})
}
