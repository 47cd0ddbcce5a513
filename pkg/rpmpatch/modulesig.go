/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vmware/photon-mokboot/pkg/cpioarchive"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// moduleSignatureTrailer is the literal marker the kernel's
// sign-file tool appends after a module's PKCS#7 signature block.
const moduleSignatureTrailer = "~Module signature appended~"

// probeModuleSignatures searches every .ko in the payload (compressed
// .ko.xz/.ko.gz entries are not examined) and requires the trailer
// literal, the invariant verification
// step spec.md §4.4 runs after assembling a linux-mok payload: if the
// spec's %define __strip /bin/true didn't take effect, the trailer is
// the first thing a default strip removes.
func probeModuleSignatures(a *cpioarchive.Archive) error {
	found := false
	for _, e := range a.Entries {
		if !strings.HasSuffix(e.Name, ".ko") {
			continue
		}
		found = true
		if !bytes.Contains(e.Data, []byte(moduleSignatureTrailer)) {
			return mokerror.New(mokerror.ModuleSigsLost, stage, e.Name, fmt.Errorf("module signature trailer missing, strip likely re-enabled"))
		}
	}
	if !found {
		return mokerror.New(mokerror.PayloadMismatch, stage, "", fmt.Errorf("no .ko files found in linux-mok payload"))
	}
	return nil
}
