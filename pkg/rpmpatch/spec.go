/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
)

// specParams is the data needed to render a minimal rebuild spec, per
// the RPM Patcher's "Generate spec" step (spec.md §4.4 step 4).
type specParams struct {
	Name     string
	Version  string
	Release  string
	Provides string
	Conflict string
	Files    []string
	NoStrip  bool
}

func bumpRelease(release string) string {
	return release + ".mok"
}

// renderSpec writes a minimal RPM spec text. It deliberately doesn't
// use %install to populate the buildroot: the caller lays the
// rewritten payload into %{buildroot} itself (the cpio tree it already
// has in memory), so %install is a no-op and %files simply lists what
// is already there.
func renderSpec(p specParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s-mok\n", p.Name)
	fmt.Fprintf(&b, "Version: %s\n", p.Version)
	fmt.Fprintf(&b, "Release: %s\n", p.Release)
	b.WriteString("Summary: MOK-signed variant of " + p.Name + "\n")
	b.WriteString("License: Apache-2.0\n")
	b.WriteString("Group: System Environment/Base\n")
	if p.Provides != "" {
		fmt.Fprintf(&b, "Provides: %s\n", p.Provides)
	}
	if p.Conflict != "" {
		fmt.Fprintf(&b, "Conflicts: %s\n", p.Conflict)
	}
	if p.NoStrip {
		b.WriteString("%define __strip /bin/true\n")
		b.WriteString("%define debug_package %{nil}\n")
	}
	b.WriteString("\n%description\n")
	b.WriteString("MOK-signed replacement for " + p.Name + ", generated by the Secure Boot ISO rebuilder.\n")
	b.WriteString("\n%install\n")
	b.WriteString("true\n")
	b.WriteString("\n%files\n")
	for _, f := range p.Files {
		b.WriteString(f + "\n")
	}
	return b.String()
}

// buildRootPath rewrites a cpio entry name (rpm2cpio prefixes every
// entry with "./") into a path relative to a buildroot directory.
func buildRootPath(entryName string) string {
	return strings.TrimPrefix(entryName, ".")
}

func manifestPaths(a *cpioarchive.Archive) []string {
	paths := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		p := buildRootPath(e.Name)
		if p == "" || p == "/" {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func parseFileMode(mode int64) int64 {
	// The low 12 bits of the newc mode field are the unix permission
	// bits; the file-type bits above them aren't meaningful once the
	// entry is written back out as a plain file.
	return mode & 0o7777
}

func modeString(mode int64) string {
	return strconv.FormatInt(parseFileMode(mode), 8)
}
