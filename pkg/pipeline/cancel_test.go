/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/pipeline"
)

func TestTokenCancelledReflectsExplicitCancel(t *testing.T) {
	RegisterTestingT(t)
	token := pipeline.NewToken(context.Background())
	Expect(token.Cancelled()).To(BeFalse())
	token.Cancel()
	Expect(token.Cancelled()).To(BeTrue())
	Expect(token.Err()).To(Equal(context.Canceled))
}

func TestTokenCancelledReflectsParentCancellation(t *testing.T) {
	RegisterTestingT(t)
	parent, parentCancel := context.WithCancel(context.Background())
	token := pipeline.NewToken(parent)
	Expect(token.Cancelled()).To(BeFalse())
	parentCancel()
	Expect(token.Cancelled()).To(BeTrue())
}
