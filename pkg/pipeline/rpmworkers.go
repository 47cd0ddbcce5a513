/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/rpmpatch"
)

// WorkerCount is min(3, available cores), per spec.md §5's RPM
// patcher worker pool sizing.
func WorkerCount() int {
	if n := runtime.NumCPU(); n < 3 {
		return n
	}
	return 3
}

// RunRPMWorkers processes independent RPM requests across a bounded
// worker pool, each worker given its own scratch directory so
// concurrent rpmbuild invocations never collide on buildroot paths.
// The token is checked before each request is dispatched; once
// cancelled, queued requests are abandoned and already-started ones
// are left to their own RunContext cancellation.
func RunRPMWorkers(cfg *config.Config, token *Token, requests []rpmpatch.Request) ([]rpmpatch.Result, error) {
	results := make([]rpmpatch.Result, len(requests))
	errs := make([]error, len(requests))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := WorkerCount()
	if workers > len(requests) {
		workers = len(requests)
	}
	if workers == 0 {
		return results[:0], nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			workerCfg := *cfg
			workerCfg.TmpDir = filepath.Join(cfg.TmpDir, "rpmpatch-worker", strconv.Itoa(worker))
			workerCfg.Context = token.Context()

			for i := range jobs {
				if token.Cancelled() {
					errs[i] = token.Err()
					continue
				}
				res, err := rpmpatch.Build(&workerCfg, requests[i])
				if err != nil {
					errs[i] = err
					token.Cancel()
					continue
				}
				results[i] = *res
			}
		}(w)
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
