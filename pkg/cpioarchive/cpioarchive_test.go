/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cpioarchive_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	RegisterTestingT(t)
	a := &cpioarchive.Archive{}
	a.Insert("hello.txt", []byte("hello"))
	a.Insert("nested/world.txt", []byte("world"))

	raw, err := a.Write()
	Expect(err).To(BeNil())

	back, err := cpioarchive.Read(raw)
	Expect(err).To(BeNil())
	Expect(back.Entries).To(HaveLen(2))

	data, ok := back.Get("hello.txt")
	Expect(ok).To(BeTrue())
	Expect(string(data)).To(Equal("hello"))
}

func TestReplaceFailsOnMissingEntry(t *testing.T) {
	RegisterTestingT(t)
	a := &cpioarchive.Archive{}
	Expect(a.Replace("missing.txt", []byte("x"))).To(BeFalse())
}

func TestFindReturnsIndexOrMinusOne(t *testing.T) {
	RegisterTestingT(t)
	a := &cpioarchive.Archive{}
	a.Insert("a.txt", []byte("1"))
	a.Insert("b.txt", []byte("2"))
	Expect(a.Find("b.txt")).To(Equal(1))
	Expect(a.Find("missing")).To(Equal(-1))
}
