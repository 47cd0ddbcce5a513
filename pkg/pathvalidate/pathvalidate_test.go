/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pathvalidate_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/pathvalidate"
)

func TestValidateAcceptsPlainPaths(t *testing.T) {
	RegisterTestingT(t)
	Expect(pathvalidate.Validate("/keys/MOK.crt")).To(BeNil())
	Expect(pathvalidate.Validate("isolinux/vmlinuz")).To(BeNil())
}

func TestValidateRejectsNulByte(t *testing.T) {
	RegisterTestingT(t)
	err := pathvalidate.Validate("/keys/MOK\x00.crt")
	Expect(err).To(HaveOccurred())
}

func TestValidateRejectsShellMetacharacters(t *testing.T) {
	RegisterTestingT(t)
	for _, bad := range []string{
		"/tmp/foo;rm -rf /",
		"/tmp/foo|cat",
		"/tmp/foo&bg",
		"/tmp/$HOME",
		"/tmp/`whoami`",
		"/tmp/\"quoted\"",
		"/tmp/'quoted'",
	} {
		Expect(pathvalidate.Validate(bad)).To(HaveOccurred(), "expected rejection for %q", bad)
	}
}

func TestValidateRejectsDotDotSegments(t *testing.T) {
	RegisterTestingT(t)
	Expect(pathvalidate.Validate("../etc/passwd")).To(HaveOccurred())
	Expect(pathvalidate.Validate("keys/../../etc/passwd")).To(HaveOccurred())
}
