/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package types holds the small set of interfaces the pipeline stages
// are built against, so tests can swap in fakes without touching the
// real filesystem, process table or log sink.
package types

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component depends on.
type Logger interface {
	Info(...interface{})
	Warn(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	SetLevel(level logrus.Level)
	GetLevel() logrus.Level
	SetOutput(writer io.Writer)
}

// NewLogger returns the default logrus-backed logger with the private-key
// log sanitization hook installed.
func NewLogger() Logger {
	l := logrus.New()
	l.AddHook(&SanitizeHook{})
	return l
}

// NewNullLogger returns a logger that discards all output, for tests.
func NewNullLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewBufferLogger returns a logger that writes to the given buffer, for
// tests that assert on log content.
func NewBufferLogger(b *bytes.Buffer) Logger {
	l := logrus.New()
	l.SetOutput(b)
	l.AddHook(&SanitizeHook{})
	return l
}
