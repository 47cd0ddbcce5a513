/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pathvalidate rejects caller-supplied paths before they reach
// a shell-out or filesystem call, per the error handling design's
// "Path validation is applied to every caller-supplied path" rule.
package pathvalidate

import (
	"fmt"
	"path/filepath"
	"strings"
)

var shellMetacharacters = []string{";", "|", "&", "$", "`", "\"", "'"}

// Validate rejects a path containing a NUL byte, any shell metacharacter
// from the set `; | & $ \` " '`, or a ".." segment.
func Validate(path string) error {
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path %q contains a NUL byte", path)
	}
	for _, c := range shellMetacharacters {
		if strings.Contains(path, c) {
			return fmt.Errorf("path %q contains shell metacharacter %q", path, c)
		}
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("path %q contains a '..' segment", path)
		}
	}
	return nil
}

// ValidateAll validates every path, returning the first error found.
func ValidateAll(paths ...string) error {
	for _, p := range paths {
		if err := Validate(p); err != nil {
			return err
		}
	}
	return nil
}
