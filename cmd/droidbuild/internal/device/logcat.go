// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"io"
	"os"
	"strings"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/site"
	"droidbuild/cmdsupport/cmdlib"
)

// Logcat subcommand: follow the app's device logs.
var Logcat = &subcommands.Command{
	UsageLine: "logcat [-serial SERIAL] [-tag TAG,TAG...] [-output FILE]",
	ShortDesc: "follow the app's device logs",
	LongDesc: `Follow the app's device logs.

Streams adb logcat filtered to the app's log tags until interrupted.
The default tags catch the packaging runtime's output and crashes.`,
	CommandRun: func() subcommands.CommandRun {
		c := &logcatRun{}
		c.Flags.StringVar(&c.serial, "serial", "", "Device serial from `adb devices`.")
		c.Flags.StringVar(&c.tags, "tag", strings.Join(site.DefaultLogcatTags, ","),
			"Comma-separated log tags to keep; empty keeps everything.")
		c.Flags.StringVar(&c.output, "output", "", "Also write matching lines to this file.")
		return c
	},
}

type logcatRun struct {
	subcommands.CommandRunBase
	serial string
	tags   string
	output string
}

func (c *logcatRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *logcatRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected arguments %q", args)
	}
	ctx := cli.GetContext(a, c, env)
	cl, err := clientFor(ctx, c.serial)
	if err != nil {
		return err
	}

	var tags []string
	if c.tags != "" {
		tags = strings.Split(c.tags, ",")
	}

	var w io.Writer = a.GetOut()
	var f *os.File
	if c.output != "" {
		if f, err = os.Create(c.output); err != nil {
			return errors.Annotate(err, "create -output file").Err()
		}
		w = io.MultiWriter(w, f)
		logging.Infof(ctx, "Writing matching lines to %s", c.output)
	}
	err = cl.Logcat(ctx, w, tags)
	if f != nil {
		// A close failure means lost log lines, even when the stream
		// itself ended cleanly.
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Annotate(cerr, "close -output file").Err()
		}
	}
	return err
}
