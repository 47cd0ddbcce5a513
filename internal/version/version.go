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

// Package version carries the build-time identity stamped into
// photon-mokboot by -ldflags, for the version subcommand and for the
// history ledger's provenance line.
package version

import "runtime"

var (
	// version is overridden at build time with -ldflags
	// "-X github.com/vmware/photon-mokboot/internal/version.version=...".
	version = "v0.0.0-dev"
	// commit is the git SHA the binary was built from, set the same way.
	commit = ""
	// date is the build timestamp in RFC3339, set the same way.
	date = ""
)

// Info describes the running binary's build provenance.
type Info struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// String returns the version alone, used where only a short identifier
// fits (history ledger entries, log lines).
func String() string {
	return version
}

// Get returns the full build info, including the Go toolchain version
// and GOOS/GOARCH the binary was compiled for.
func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
