/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config assembles the shared pipeline state (filesystem,
// logger, runner, keys-dir) the same way the teacher's config package
// builds its v1.Config: a struct plus functional options, with
// sane OS-backed defaults that tests override.
package config

import (
	"context"
	"time"

	"github.com/twpayne/go-vfs/v4"

	"github.com/vmware/photon-mokboot/pkg/types"
)

// KeysDir is the persisted-state layout under the keys directory
// (spec.md §6): it is treated as an idempotent, content-addressed
// store rather than ambient global state, and is passed explicitly
// into every stage that needs it.
type KeysDir struct {
	Path string
}

func (k KeysDir) Join(names ...string) string {
	p := k.Path
	for _, n := range names {
		p = p + "/" + n
	}
	return p
}

// Config carries the pipeline-wide collaborators every stage is built
// against.
type Config struct {
	Fs      types.FS
	Logger  types.Logger
	Runner  types.Runner
	Keys    KeysDir
	TmpDir  string
	Context context.Context

	// Release selects the module-set / menu text variant (4.0, 5.0, 6.0).
	Release string

	// EfuseUSBMode gates the optional USB module set and grub.cfg variant.
	EfuseUSBMode bool

	// RPMSigning gates GPG signing of produced RPMs.
	RPMSigning bool

	// KeyBits is the MOK RSA key size (2048/3072/4096).
	KeyBits int

	// MokValidityDays is the MOK certificate validity window.
	MokValidityDays int

	// CancelGrace is how long external tools get after SIGTERM before
	// SIGKILL, per the concurrency design's 5-second grace period.
	CancelGrace time.Duration
}

type Option func(*Config)

func WithFs(fs types.FS) Option {
	return func(c *Config) { c.Fs = fs }
}

func WithLogger(l types.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithRunner(r types.Runner) Option {
	return func(c *Config) { c.Runner = r }
}

func WithKeysDir(path string) Option {
	return func(c *Config) { c.Keys = KeysDir{Path: path} }
}

func WithRelease(release string) Option {
	return func(c *Config) { c.Release = release }
}

func WithEfuseUSB(enabled bool) Option {
	return func(c *Config) { c.EfuseUSBMode = enabled }
}

func WithRPMSigning(enabled bool) Option {
	return func(c *Config) { c.RPMSigning = enabled }
}

func WithKeyBits(bits int) Option {
	return func(c *Config) { c.KeyBits = bits }
}

func WithMokValidityDays(days int) Option {
	return func(c *Config) { c.MokValidityDays = days }
}

// New builds a Config, applying defaults first and options after, the
// same order the teacher's NewConfig uses. When no WithRunner option is
// given, the default RealRunner is created last, so it logs through
// whatever logger the options set.
func New(opts ...Option) *Config {
	logger := types.NewLogger()
	c := &Config{
		Fs:              vfs.OSFS,
		Logger:          logger,
		KeyBits:         2048,
		MokValidityDays: 180,
		CancelGrace:     5 * time.Second,
		Context:         context.Background(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.Runner == nil {
		c.Runner = &types.RealRunner{Logger: c.Logger}
	}
	return c
}
