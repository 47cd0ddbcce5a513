/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package keymanager generates and loads the MOK keypair, the kernel
// module signing key and the optional GPG key, and exposes them as
// signing capabilities to the rest of the pipeline. It never
// regenerates an existing key (policy, not configurable) and never
// auto-rotates an expired one.
package keymanager

import (
	"crypto/rsa"
	"crypto/x509"
)

// MokKeypair is the Machine Owner Key: an RSA private key plus a
// self-signed X.509 certificate in three serialized forms that all
// encode the same key material.
type MokKeypair struct {
	Private    *rsa.PrivateKey
	Cert       *x509.Certificate
	PrivatePEM []byte
	CertPEM    []byte
	CertDER    []byte
}

// Filenames under a keys-dir, per spec.md §6's persisted state layout.
const (
	MokKeyFile        = "MOK.key"
	MokCrtFile        = "MOK.crt"
	MokDerFile        = "MOK.der"
	ModuleSigningFile = "kernel_module_signing.pem"
	HistoryFile       = "mok_history.json"
)
