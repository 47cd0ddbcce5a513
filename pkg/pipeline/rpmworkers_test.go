/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline_test

import (
	"runtime"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/pipeline"
	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
	"github.com/vmware/photon-mokboot/pkg/types"
)

func TestWorkerCountNeverExceedsThreeOrAvailableCores(t *testing.T) {
	RegisterTestingT(t)
	n := pipeline.WorkerCount()
	Expect(n).To(BeNumerically("<=", 3))
	Expect(n).To(BeNumerically("<=", runtime.NumCPU()))
	Expect(n).To(BeNumerically(">=", 1))
}

func TestRunRPMWorkersNoRequestsReturnsEmptyResult(t *testing.T) {
	RegisterTestingT(t)
	cfg := config.New(config.WithLogger(types.NewNullLogger()))
	token := pipeline.NewToken(cfg.Context)
	results, err := pipeline.RunRPMWorkers(cfg, token, []rpmpatch.Request{})
	Expect(err).To(BeNil())
	Expect(results).To(BeEmpty())
}
