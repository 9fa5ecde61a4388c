// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clean implements the `clean` subcommand.
package clean

import (
	"os"
	"path/filepath"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/common"
	"droidbuild/cmdsupport/cmdlib"
)

// cacheDirs are the only things clean ever removes, all relative to
// the project dir. Stale state under .buildozer is the usual reason a
// source change does not show up on the device.
var cacheDirs = []string{".buildozer", ".gradle"}

// Clean subcommand: drop the packaging toolchain's build caches.
var Clean = &subcommands.Command{
	UsageLine: "clean [-force]",
	ShortDesc: "drop the packaging toolchain's build caches",
	LongDesc: `Drop the packaging toolchain's build caches.

Removes the toolchain cache dirs from the project checkout. Use this
when a rebuilt APK still shows stale behavior on the device. The next
build will be slow.`,
	CommandRun: func() subcommands.CommandRun {
		c := &cleanRun{}
		c.projectFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.force, "force", false, "Do not ask for confirmation.")
		return c
	},
}

type cleanRun struct {
	subcommands.CommandRunBase
	projectFlags common.ProjectFlags
	force        bool
}

func (c *cleanRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *cleanRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected arguments %q", args)
	}
	ctx := cli.GetContext(a, c, env)
	projectDir, err := c.projectFlags.ProjectDir()
	if err != nil {
		return err
	}

	var targets []string
	for _, d := range cacheDirs {
		p := filepath.Join(projectDir, d)
		if _, err := os.Stat(p); err == nil {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		logging.Infof(ctx, "Nothing to clean in %s", projectDir)
		return nil
	}

	if !c.force {
		q := "About to remove:"
		for _, t := range targets {
			q += "\n  " + t
		}
		if !cmdlib.Confirm(a.GetOut(), os.Stdin, q+"\nProceed?", false) {
			logging.Infof(ctx, "Aborted")
			return nil
		}
	}
	for _, t := range targets {
		if err := os.RemoveAll(t); err != nil {
			return err
		}
		logging.Infof(ctx, "Removed %s", t)
	}
	return nil
}
