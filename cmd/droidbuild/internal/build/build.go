// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build implements the `apk` subcommand: one packaging run
// inside the builder container, then artifact retrieval.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"droidbuild/cmd/droidbuild/internal/common"
	"droidbuild/cmd/droidbuild/internal/site"
	"droidbuild/cmdsupport/cmdlib"
	"droidbuild/libs/buildspec"
	"droidbuild/libs/docker"
	"droidbuild/libs/keystore"
)

// Apk subcommand: build the APK inside the builder container.
var Apk = &subcommands.Command{
	UsageLine: "apk [-release] [-abi ABI] [-output DIR]",
	ShortDesc: "build the wallet APK inside the builder container",
	LongDesc: `Build the wallet APK inside the builder container.

The project checkout is mounted at the fixed workspace path, the Gradle
cache dir is mounted for persistence across builds, and for release
builds the keystore is mounted read-only. The finished artifact is
picked up from the bin/ directory of the checkout.`,
	CommandRun: func() subcommands.CommandRun {
		c := &apkRun{}
		c.projectFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.release, "release", false, "Build a release APK (debug by default).")
		c.Flags.StringVar(&c.abi, "abi", "", "Target ABI (default: first ABI in the buildspec).")
		c.Flags.StringVar(&c.output, "output", "", "Copy the finished APK into this directory.")
		return c
	},
}

type apkRun struct {
	subcommands.CommandRunBase
	projectFlags common.ProjectFlags

	release bool
	abi     string
	output  string
}

func (c *apkRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *apkRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected arguments %q", args)
	}
	ctx := cli.GetContext(a, c, env)
	spec, projectDir, err := c.projectFlags.Load()
	if err != nil {
		return err
	}

	// Refuse early when the checkout is not a packageable tree.
	if _, err := os.Stat(filepath.Join(projectDir, spec.SpecFile)); err != nil {
		return errors.Reason("%q not found in %s; is this the right checkout?", spec.SpecFile, projectDir).Err()
	}

	abi := c.abi
	if abi == "" {
		abi = spec.ABIs[0]
	}
	if !contains(spec.ABIs, abi) {
		return cmdlib.NewUsageError(c.Flags, "ABI %q is not in the buildspec (have %v)", abi, spec.ABIs)
	}

	version, err := spec.Version(projectDir)
	if err != nil {
		return err
	}
	logging.Infof(ctx, "Building %s %s for %s (%s)", spec.App, version, abi, buildType(c.release))

	cl := docker.NewClient()
	ok, err := cl.ImageExists(ctx, spec.Image.Ref())
	if err != nil {
		return err
	}
	if !ok {
		return errors.Reason("builder image %s not found; run `droidbuild image-build` first", spec.Image.Ref()).Err()
	}

	run, err := c.runArgs(spec, projectDir, abi)
	if err != nil {
		return err
	}
	if _, err := cl.Run(ctx, run); err != nil {
		return errors.Annotate(err, "packaging run").Err()
	}

	signed := c.release && spec.Keystore != ""
	apk := filepath.Join(projectDir, spec.ArtifactDir,
		ArtifactName(spec.App, version, abi, c.release, signed))
	if _, err := os.Stat(apk); err != nil {
		return errors.Reason("packaging finished but %s is missing; a stale build cache can cause this, try `droidbuild clean`", apk).Err()
	}

	if c.output != "" {
		if apk, err = copyArtifact(apk, c.output); err != nil {
			return err
		}
	}
	return report(ctx, apk)
}

// runArgs assembles the container invocation for one packaging run.
func (c *apkRun) runArgs(spec *buildspec.Spec, projectDir, abi string) (docker.RunArgs, error) {
	gradle, err := spec.GradleCachePath()
	if err != nil {
		return docker.RunArgs{}, err
	}
	mounts := []docker.Mount{{Host: projectDir, Container: spec.WorkspaceMount}}
	if gradle != "" {
		mounts = append(mounts, docker.Mount{Host: gradle, Container: spec.GradleCacheMount})
	}
	env := map[string]string{"APP_ANDROID_ARCH": abi}
	if c.release && spec.Keystore != "" {
		mounts = append(mounts, docker.Mount{Host: spec.Keystore, Container: spec.KeystoreMount, ReadOnly: true})
		env["KEYSTORE_PATH"] = spec.KeystoreMount
		if os.Getenv(keystore.PasswordEnv) == "" {
			return docker.RunArgs{}, errors.Reason("release build with keystore needs %s set", keystore.PasswordEnv).Err()
		}
		env[keystore.PasswordEnv] = "" // pass-through, value stays out of argv
	}
	return docker.RunArgs{
		Image:    spec.Image.Ref(),
		Mounts:   mounts,
		Env:      env,
		Workdir:  spec.WorkspaceMount,
		Command:  append(append([]string{}, spec.BuildCommand...), buildType(c.release)),
		LockFile: site.BuildLockFile(),
	}, nil
}

// ArtifactName returns the APK file name the packaging toolchain
// produces under bin/.
func ArtifactName(app, version, abi string, release, signed bool) string {
	switch {
	case !release:
		return fmt.Sprintf("%s-%s-%s-debug.apk", app, version, abi)
	case signed:
		return fmt.Sprintf("%s-%s-%s-release.apk", app, version, abi)
	default:
		return fmt.Sprintf("%s-%s-%s-release-unsigned.apk", app, version, abi)
	}
}

func buildType(release bool) string {
	if release {
		return "release"
	}
	return "debug"
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// copyArtifact copies the APK into dir and returns the new path.
func copyArtifact(apk, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Annotate(err, "create output dir").Err()
	}
	dst := filepath.Join(dir, filepath.Base(apk))
	in, err := os.Open(apk)
	if err != nil {
		return "", errors.Annotate(err, "open artifact").Err()
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", errors.Annotate(err, "create %q", dst).Err()
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.Annotate(err, "copy artifact").Err()
	}
	if err := out.Close(); err != nil {
		return "", errors.Annotate(err, "flush %q", dst).Err()
	}
	return dst, nil
}

// report logs the artifact path, size and content hash.
func report(ctx context.Context, apk string) error {
	f, err := os.Open(apk)
	if err != nil {
		return errors.Annotate(err, "open artifact").Err()
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return errors.Annotate(err, "hash artifact").Err()
	}
	logging.Infof(ctx, "Artifact: %s", apk)
	logging.Infof(ctx, "Size: %s, SHA-256: %s", humanize.Bytes(uint64(n)), hex.EncodeToString(h.Sum(nil)))
	return nil
}
