// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command droidbuild drives the containerized Android packaging
// workflow for the wallet app: building the builder image, producing
// APKs, signing and installing them, and verifying that two builds of
// the same revision are bit-for-bit identical.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"droidbuild/cmd/droidbuild/internal/build"
	"droidbuild/cmd/droidbuild/internal/clean"
	"droidbuild/cmd/droidbuild/internal/device"
	"droidbuild/cmd/droidbuild/internal/image"
	"droidbuild/cmd/droidbuild/internal/meta"
	"droidbuild/cmd/droidbuild/internal/repro"
	"droidbuild/cmd/droidbuild/internal/signing"
)

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "droidbuild",
		Title: `droidbuild command line tool`,
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			meta.Version,
			subcommands.Section("Building"),
			image.Build,
			build.Apk,
			clean.Clean,
			subcommands.Section("Signing"),
			signing.Sign,
			signing.VerifySignature,
			subcommands.Section("Devices"),
			device.Install,
			device.Logcat,
			device.PullData,
			subcommands.Section("Reproducibility"),
			repro.Diff,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
