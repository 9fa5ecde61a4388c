// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package keystore signs and verifies APKs with apksigner against a
// local keystore file. The keystore password travels via environment,
// never argv, so it cannot leak through the process table.
package keystore

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"go.chromium.org/luci/common/errors"

	"droidbuild/libs/executor"
)

// PasswordEnv is the variable holding the keystore password.
const PasswordEnv = "DROIDBUILD_KEYSTORE_PASSWORD"

const signTimeout = 5 * time.Minute

// Signer signs APKs with one keystore.
type Signer struct {
	Commander executor.Commander

	// KeystorePath is the keystore file on the host.
	KeystorePath string
	// KeyAlias selects the signing key; apksigner's default when empty.
	KeyAlias string
}

// NewSigner returns a Signer that runs apksigner on the host.
func NewSigner(keystorePath, keyAlias string) *Signer {
	return &Signer{
		Commander:    &executor.ExecCommander{},
		KeystorePath: keystorePath,
		KeyAlias:     keyAlias,
	}
}

// Sign signs in place when out is empty, otherwise writes to out.
func (s *Signer) Sign(ctx context.Context, apkPath, out string) error {
	ks, err := homedir.Expand(s.KeystorePath)
	if err != nil {
		return errors.Annotate(err, "expand keystore path").Err()
	}
	if _, err := os.Stat(ks); err != nil {
		return errors.Annotate(err, "keystore %q", ks).Err()
	}
	if os.Getenv(PasswordEnv) == "" {
		return errors.Reason("keystore password not set; export %s", PasswordEnv).Err()
	}

	args := []string{"sign", "--ks", ks, "--ks-pass", "env:" + PasswordEnv}
	if s.KeyAlias != "" {
		args = append(args, "--ks-key-alias", s.KeyAlias)
	}
	if out != "" {
		args = append(args, "--out", out)
	}
	args = append(args, apkPath)

	sctx, cancel := context.WithTimeout(ctx, signTimeout)
	defer cancel()
	cmd := exec.CommandContext(sctx, "apksigner", args...)
	if o, err := s.Commander.Exec(cmd); err != nil {
		return errors.Annotate(err, "apksigner sign %q: %s", apkPath, strings.TrimSpace(string(o))).Err()
	}
	return nil
}

// Verify checks the APK signature and returns the signer certificate
// listing apksigner prints.
func Verify(ctx context.Context, commander executor.Commander, apkPath string) (string, error) {
	vctx, cancel := context.WithTimeout(ctx, signTimeout)
	defer cancel()
	cmd := exec.CommandContext(vctx, "apksigner", "verify", "--print-certs", apkPath)
	out, err := commander.Exec(cmd)
	if err != nil {
		return "", errors.Annotate(err, "apksigner verify %q", apkPath).Err()
	}
	return string(out), nil
}
