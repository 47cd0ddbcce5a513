/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rpmpatch

import (
	"github.com/vmware/photon-mokboot/pkg/config"
	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// signRPM adds an RPM-v4 header+payload signature using the caller's
// GPG keyring, delegating to rpmsign the same way pkg/authenticode
// delegates PE signing to sbsign rather than constructing the PGP
// signature packet itself.
func signRPM(cfg *config.Config, rpmPath, gpgKeyring, gpgIdentity string) error {
	out, err := cfg.Runner.RunContext(cfg.Context, "rpmsign",
		"--define", "_gpg_name "+gpgIdentity,
		"--define", "_gpg_path "+gpgKeyring,
		"--addsign", rpmPath,
	)
	if err != nil {
		return mokerror.New(mokerror.SignFailed, stage, rpmPath, errWithOutput(err, out))
	}
	return nil
}

// VerifySignature shells to `rpm -K` and reports true when it exits
// successfully, returning the tool's output. It does not itself compare
// the signing key ID with any published public key.
func VerifySignature(cfg *config.Config, rpmPath string) (bool, string, error) {
	out, err := cfg.Runner.RunContext(cfg.Context, "rpm", "-K", rpmPath)
	if err != nil {
		return false, "", mokerror.New(mokerror.SignFailed, stage, rpmPath, errWithOutput(err, out))
	}
	return true, string(out), nil
}
