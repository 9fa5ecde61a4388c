// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/common"
	"droidbuild/cmdsupport/cmdlib"
)

// PullData subcommand: copy the app's private data off a device.
var PullData = &subcommands.Command{
	UsageLine: "pull-data [-serial SERIAL] -output FILE.tar",
	ShortDesc: "copy the app's private data off a device",
	LongDesc: `Copy the app's private data off a device.

Uses run-as, so it only works against debuggable builds. The data
arrives as a tar stream of the app's /data/data directory; useful for
inspecting wallet files while debugging.`,
	CommandRun: func() subcommands.CommandRun {
		c := &pullDataRun{}
		c.projectFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.serial, "serial", "", "Device serial from `adb devices`.")
		c.Flags.StringVar(&c.output, "output", "", "Write the tar stream here (required).")
		return c
	},
}

type pullDataRun struct {
	subcommands.CommandRunBase
	projectFlags common.ProjectFlags
	serial       string
	output       string
}

func (c *pullDataRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *pullDataRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected arguments %q", args)
	}
	if c.output == "" {
		return cmdlib.NewUsageError(c.Flags, "-output is required")
	}
	ctx := cli.GetContext(a, c, env)
	spec, _, err := c.projectFlags.Load()
	if err != nil {
		return err
	}
	cl, err := clientFor(ctx, c.serial)
	if err != nil {
		return err
	}
	f, err := os.Create(c.output)
	if err != nil {
		return errors.Annotate(err, "create -output file").Err()
	}
	defer f.Close()
	if err := cl.PullAppData(ctx, spec.Package, f); err != nil {
		return err
	}
	logging.Infof(ctx, "Wrote %s data to %s", spec.Package, c.output)
	return nil
}
