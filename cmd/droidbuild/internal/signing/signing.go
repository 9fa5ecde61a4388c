// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package signing implements the `sign` and `verify-signature`
// subcommands.
package signing

import (
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/common"
	"droidbuild/cmdsupport/cmdlib"
	"droidbuild/libs/executor"
	"droidbuild/libs/keystore"
)

// Sign subcommand: sign an APK against the project keystore.
var Sign = &subcommands.Command{
	UsageLine: "sign [-keystore FILE] [-alias ALIAS] [-out FILE] APK",
	ShortDesc: "sign an APK against the project keystore",
	LongDesc: `Sign an APK against the project keystore.

The keystore password is read from $` + keystore.PasswordEnv + `.
With no -out the APK is signed in place.`,
	CommandRun: func() subcommands.CommandRun {
		c := &signRun{}
		c.projectFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.keystorePath, "keystore", "", "Keystore file (default: keystore from the buildspec).")
		c.Flags.StringVar(&c.alias, "alias", "", "Signing key alias.")
		c.Flags.StringVar(&c.out, "out", "", "Write the signed APK here instead of in place.")
		return c
	},
}

type signRun struct {
	subcommands.CommandRunBase
	projectFlags common.ProjectFlags

	keystorePath string
	alias        string
	out          string
}

func (c *signRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *signRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 1 {
		return cmdlib.NewUsageError(c.Flags, "expected exactly one APK path")
	}
	ctx := cli.GetContext(a, c, env)

	ks := c.keystorePath
	if ks == "" {
		spec, _, err := c.projectFlags.Load()
		if err != nil {
			return err
		}
		if spec.Keystore == "" {
			return cmdlib.NewUsageError(c.Flags, "no -keystore given and the buildspec has none")
		}
		ks = spec.Keystore
	}

	s := keystore.NewSigner(ks, c.alias)
	if err := s.Sign(ctx, args[0], c.out); err != nil {
		return err
	}
	signed := c.out
	if signed == "" {
		signed = args[0]
	}
	logging.Infof(ctx, "Signed %s", signed)
	return nil
}

// VerifySignature subcommand: check an APK's signature.
var VerifySignature = &subcommands.Command{
	UsageLine: "verify-signature APK",
	ShortDesc: "check an APK's signature and print its signer certs",
	LongDesc:  "Check an APK's signature and print its signer certs.",
	CommandRun: func() subcommands.CommandRun {
		return &verifyRun{}
	},
}

type verifyRun struct {
	subcommands.CommandRunBase
}

func (c *verifyRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *verifyRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 1 {
		return cmdlib.NewUsageError(c.Flags, "expected exactly one APK path")
	}
	ctx := cli.GetContext(a, c, env)
	out, err := keystore.Verify(ctx, &executor.ExecCommander{}, args[0])
	if err != nil {
		return err
	}
	a.GetOut().Write([]byte(out))
	return nil
}
