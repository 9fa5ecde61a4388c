// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package meta contains commands about the droidbuild tool itself.
package meta

import (
	"fmt"

	"github.com/maruel/subcommands"

	"droidbuild/cmd/droidbuild/internal/site"
)

// Version subcommand: print the droidbuild tool version.
var Version = &subcommands.Command{
	UsageLine: "version",
	ShortDesc: "print droidbuild version",
	LongDesc:  "Print droidbuild version.",
	CommandRun: func() subcommands.CommandRun {
		return &versionRun{}
	},
}

type versionRun struct {
	subcommands.CommandRunBase
}

func (c *versionRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fmt.Fprintf(a.GetOut(), "droidbuild version %d\n", site.VersionNumber)
	return 0
}
