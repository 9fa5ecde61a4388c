// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package device implements the adb-facing subcommands: install,
// logcat and pull-data.
package device

import (
	"context"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmdsupport/cmdlib"
	"droidbuild/libs/adb"
)

// Install subcommand: install an APK on an attached device.
var Install = &subcommands.Command{
	UsageLine: "install [-serial SERIAL] APK",
	ShortDesc: "install an APK on an attached device",
	LongDesc: `Install an APK on an attached device.

Existing installs are replaced (adb install -r). Use -serial when more
than one device is attached.`,
	CommandRun: func() subcommands.CommandRun {
		c := &installRun{}
		c.Flags.StringVar(&c.serial, "serial", "", "Device serial from `adb devices`.")
		return c
	},
}

type installRun struct {
	subcommands.CommandRunBase
	serial string
}

func (c *installRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *installRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 1 {
		return cmdlib.NewUsageError(c.Flags, "expected exactly one APK path")
	}
	ctx := cli.GetContext(a, c, env)
	cl, err := clientFor(ctx, c.serial)
	if err != nil {
		return err
	}
	if err := cl.Install(ctx, args[0]); err != nil {
		return err
	}
	logging.Infof(ctx, "Installed %s", args[0])
	return nil
}

// newClient is stubbed in tests.
var newClient = adb.NewClient

// clientFor pins an adb client to a device, erroring out when the
// device choice is ambiguous.
func clientFor(ctx context.Context, serial string) (*adb.Client, error) {
	cl := newClient(serial)
	devices, err := cl.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkDeviceChoice(devices, serial); err != nil {
		return nil, err
	}
	return cl, nil
}

func checkDeviceChoice(devices []string, serial string) error {
	switch {
	case len(devices) == 0:
		return errors.Reason("no device attached; check `adb devices` and USB debugging").Err()
	case serial == "" && len(devices) > 1:
		return errors.Reason("%d devices attached, pick one with -serial", len(devices)).Err()
	case serial != "" && !containsStr(devices, serial):
		return errors.Reason("device %q not attached (have %v)", serial, devices).Err()
	}
	return nil
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
