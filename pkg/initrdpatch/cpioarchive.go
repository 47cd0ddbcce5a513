/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package initrdpatch

import (
	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// archive wraps cpioarchive.Archive with the mokerror-typed error
// handling this package's callers expect.
type archive struct {
	a *cpioarchive.Archive
}

func readArchive(raw []byte) (*archive, error) {
	a, err := cpioarchive.Read(raw)
	if err != nil {
		return nil, mokerror.New(mokerror.InputValidation, stage, "", err)
	}
	return &archive{a: a}, nil
}

func (ar *archive) write() ([]byte, error) {
	data, err := ar.a.Write()
	if err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "", err)
	}
	return data, nil
}

func (ar *archive) find(name string) int {
	return ar.a.Find(name)
}

func (ar *archive) replace(name string, data []byte) error {
	if !ar.a.Replace(name, data) {
		return mokerror.New(mokerror.OriginalMissing, stage, name, errNotFound(name))
	}
	return nil
}

func (ar *archive) insert(name string, data []byte) {
	ar.a.Insert(name, data)
}

func (ar *archive) get(name string) ([]byte, bool) {
	return ar.a.Get(name)
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "not found in initrd: " + e.name }

func errNotFound(name string) error { return &notFoundError{name: name} }
