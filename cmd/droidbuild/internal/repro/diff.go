// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package repro implements the `diff` subcommand: byte-for-byte
// reproducibility verification of two independently built APKs.
package repro

import (
	"os"
	"path/filepath"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmdsupport/cmdlib"
	"droidbuild/libs/apkfile"
)

// Diff subcommand: compare two APKs for reproducibility.
var Diff = &subcommands.Command{
	UsageLine: "diff [-ignore-signing] [-asset NAME] [-manifests DIR] APK_A APK_B",
	ShortDesc: "compare two APK builds entry by entry",
	LongDesc: `Compare two APK builds entry by entry.

Unpacks both APKs, expands the embedded payload asset, hashes every
file and diffs the listings. Two builds of the same source revision
with the same toolchain must come out identical.

Exit status: 0 when identical, 1 when the builds differ, 2 on
operational errors.`,
	CommandRun: func() subcommands.CommandRun {
		c := &diffRun{}
		c.Flags.BoolVar(&c.ignoreSigning, "ignore-signing", false,
			"Exclude signature entries so a signed build can be compared to an unsigned one.")
		c.Flags.StringVar(&c.asset, "asset", "",
			"Embedded payload asset entry to expand (default: probe the usual names).")
		c.Flags.StringVar(&c.manifests, "manifests", "",
			"Also write both hash listings into this directory.")
		return c
	},
}

type diffRun struct {
	subcommands.CommandRunBase

	ignoreSigning bool
	asset         string
	manifests     string
}

func (c *diffRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	identical, err := c.innerRun(a, args, env)
	switch {
	case err != nil:
		cmdlib.PrintError(a, err)
		return 2
	case !identical:
		return 1
	default:
		return 0
	}
}

func (c *diffRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) (bool, error) {
	if len(args) != 2 {
		return false, cmdlib.NewUsageError(c.Flags, "expected exactly two APK paths")
	}
	ctx := cli.GetContext(a, c, env)

	opts := apkfile.ReadOptions{}
	if c.asset != "" {
		opts.AssetNames = []string{c.asset}
	}
	ma, err := apkfile.Read(args[0], opts)
	if err != nil {
		return false, err
	}
	mb, err := apkfile.Read(args[1], opts)
	if err != nil {
		return false, err
	}

	if c.manifests != "" {
		if err := writeManifests(c.manifests, args, ma, mb); err != nil {
			return false, err
		}
		logging.Infof(ctx, "Hash listings written to %s", c.manifests)
	}

	res := apkfile.Diff(ma, mb, apkfile.DiffOptions{IgnoreSigning: c.ignoreSigning})
	res.Report(a.GetOut(), args[0], args[1])
	return res.Identical(), nil
}

func writeManifests(dir string, args []string, ma, mb apkfile.Manifest) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotate(err, "create -manifests dir").Err()
	}
	// Suffix keeps the listings apart when both APKs share a name.
	for i, m := range []apkfile.Manifest{ma, mb} {
		name := filepath.Base(args[i]) + ".sha256." + string(rune('a'+i))
		if err := os.WriteFile(filepath.Join(dir, name), []byte(m.String()), 0644); err != nil {
			return errors.Annotate(err, "write manifest for %q", args[i]).Err()
		}
	}
	return nil
}
