/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cleanstack_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/cleanstack"
)

func TestCleanupRunsJobsInLIFOOrder(t *testing.T) {
	RegisterTestingT(t)
	var order []int
	s := cleanstack.New()
	s.Push(func() error { order = append(order, 1); return nil })
	s.Push(func() error { order = append(order, 2); return nil })
	s.Push(func() error { order = append(order, 3); return nil })

	Expect(s.Cleanup(nil)).To(BeNil())
	Expect(order).To(Equal([]int{3, 2, 1}))
}

func TestCleanupAccumulatesAllErrors(t *testing.T) {
	RegisterTestingT(t)
	s := cleanstack.New()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	s.Push(func() error { return errA })
	s.Push(func() error { return errB })

	err := s.Cleanup(nil)
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("a failed"))
	Expect(err.Error()).To(ContainSubstring("b failed"))
}

func TestPushErrorOnlySkipsOnSuccess(t *testing.T) {
	RegisterTestingT(t)
	ran := false
	s := cleanstack.New()
	s.PushErrorOnly(func() error { ran = true; return nil })

	Expect(s.Cleanup(nil)).To(BeNil())
	Expect(ran).To(BeFalse())
}

func TestPushErrorOnlyRunsOnFailure(t *testing.T) {
	RegisterTestingT(t)
	ran := false
	s := cleanstack.New()
	s.PushErrorOnly(func() error { ran = true; return nil })

	err := s.Cleanup(errors.New("boom"))
	Expect(err).To(HaveOccurred())
	Expect(ran).To(BeTrue())
}

func TestPushSuccessOnlySkipsOnFailure(t *testing.T) {
	RegisterTestingT(t)
	ran := false
	s := cleanstack.New()
	s.PushSuccessOnly(func() error { ran = true; return nil })

	err := s.Cleanup(errors.New("boom"))
	Expect(err).To(HaveOccurred())
	Expect(ran).To(BeFalse())
}

func TestPushSuccessOnlyRunsOnSuccess(t *testing.T) {
	RegisterTestingT(t)
	ran := false
	s := cleanstack.New()
	s.PushSuccessOnly(func() error { ran = true; return nil })

	Expect(s.Cleanup(nil)).To(BeNil())
	Expect(ran).To(BeTrue())
}
