// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package image implements the `image-build` subcommand.
package image

import (
	"path/filepath"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/common"
	"droidbuild/cmdsupport/cmdlib"
	"droidbuild/libs/docker"
)

// Build subcommand: build the builder container image.
var Build = &subcommands.Command{
	UsageLine: "image-build [-no-cache] [-tag TAG]",
	ShortDesc: "build the Android builder container image",
	LongDesc: `Build the Android builder container image.

The image bundles the SDK/NDK toolchain the packaging step runs under.
Rebuild it after toolchain bumps; day-to-day APK builds reuse it.`,
	CommandRun: func() subcommands.CommandRun {
		c := &buildRun{}
		c.projectFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.noCache, "no-cache", false, "Rebuild every image layer from scratch.")
		c.Flags.StringVar(&c.tag, "tag", "", "Override the image tag from the buildspec.")
		return c
	},
}

type buildRun struct {
	subcommands.CommandRunBase
	projectFlags common.ProjectFlags

	noCache bool
	tag     string
}

func (c *buildRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *buildRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected arguments %q", args)
	}
	ctx := cli.GetContext(a, c, env)
	spec, projectDir, err := c.projectFlags.Load()
	if err != nil {
		return err
	}
	img := spec.Image
	if c.tag != "" {
		img.Tag = c.tag
	}
	logging.Infof(ctx, "Building %s from %s", img.Ref(), img.Dockerfile)
	err = docker.NewClient().BuildImage(ctx, docker.BuildImageArgs{
		ContextDir: filepath.Join(projectDir, img.Context),
		Dockerfile: filepath.Join(projectDir, img.Dockerfile),
		Tag:        img.Ref(),
		NoCache:    c.noCache,
	})
	if err != nil {
		return err
	}
	logging.Infof(ctx, "Image %s ready", img.Ref())
	return nil
}
