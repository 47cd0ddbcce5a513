/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cleanstack provides a LIFO teardown stack so every mount,
// loopback device, GPG keyring and temp dir a stage opens is released
// in reverse order, regardless of how the stage exits.
package cleanstack

import (
	"github.com/hashicorp/go-multierror"
)

const (
	always = iota
	errorOnly
	successOnly
)

type cleanFunc func() error

type job struct {
	fn      cleanFunc
	jobType int
}

// Stack is a basic resize-as-needed LIFO stack of cleanup jobs.
type Stack struct {
	jobs []*job
}

func New() *Stack {
	return &Stack{}
}

// Push registers a job that always runs during Cleanup.
func (s *Stack) Push(fn cleanFunc) {
	s.jobs = append(s.jobs, &job{fn: fn, jobType: always})
}

// PushErrorOnly registers a job that only runs when Cleanup is called
// with a non-nil error (e.g. discarding a partial output tree).
func (s *Stack) PushErrorOnly(fn cleanFunc) {
	s.jobs = append(s.jobs, &job{fn: fn, jobType: errorOnly})
}

// PushSuccessOnly registers a job that only runs on success.
func (s *Stack) PushSuccessOnly(fn cleanFunc) {
	s.jobs = append(s.jobs, &job{fn: fn, jobType: successOnly})
}

// Cleanup unwinds the stack last-to-first, running every applicable job
// and accumulating failures instead of stopping at the first one.
func (s *Stack) Cleanup(err error) error {
	var errs error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for i := len(s.jobs) - 1; i >= 0; i-- {
		j := s.jobs[i]
		switch j.jobType {
		case successOnly:
			if errs != nil {
				continue
			}
		case errorOnly:
			if errs == nil {
				continue
			}
		}
		if runErr := j.fn(); runErr != nil {
			errs = multierror.Append(errs, runErr)
		}
	}
	s.jobs = nil
	return errs
}
