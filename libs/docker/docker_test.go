// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"droidbuild/libs/executor"
)

func TestBuildImage(t *testing.T) {
	t.Parallel()

	Convey("BuildImage assembles the docker argv", t, func() {
		f := &executor.FakeCommander{CmdOutput: "Successfully built deadbeef\n"}
		c := &Client{Commander: f}

		err := c.BuildImage(context.Background(), BuildImageArgs{
			ContextDir: "/src/wallet/contrib/android",
			Dockerfile: "/src/wallet/contrib/android/Dockerfile",
			Tag:        "walletbuild/android-builder:latest",
			NoCache:    true,
		})
		So(err, ShouldBeNil)
		So(f.Commands, ShouldHaveLength, 1)
		line := f.CommandLine(0)
		So(line, ShouldContainSubstring, "docker image build -t walletbuild/android-builder:latest")
		So(line, ShouldContainSubstring, "-f /src/wallet/contrib/android/Dockerfile")
		So(line, ShouldContainSubstring, "--no-cache")
		So(line, ShouldEndWith, "/src/wallet/contrib/android")
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	Convey("Run mounts, env and command land in order", t, func() {
		f := &executor.FakeCommander{CmdOutput: "BUILD SUCCESSFUL\n"}
		c := &Client{Commander: f}

		out, err := c.Run(context.Background(), RunArgs{
			Image: "walletbuild/android-builder:latest",
			Mounts: []Mount{
				{Host: "/src/wallet", Container: "/home/user/wspace"},
				{Host: "/cache/gradle", Container: "/home/user/.gradle"},
				{Host: "/keys/release.keystore", Container: "/home/user/.keystore", ReadOnly: true},
			},
			Env:     map[string]string{"APP_ANDROID_ARCH": "arm64-v8a"},
			Workdir: "/home/user/wspace",
			Command: []string{"./contrib/android/make_apk", "release"},
		})
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "BUILD SUCCESSFUL\n")

		line := f.CommandLine(0)
		So(line, ShouldContainSubstring, "docker run --rm --name android-builder-")
		So(line, ShouldContainSubstring, "-v /src/wallet:/home/user/wspace")
		So(line, ShouldContainSubstring, "-v /cache/gradle:/home/user/.gradle")
		So(line, ShouldContainSubstring, "-v /keys/release.keystore:/home/user/.keystore:ro")
		So(line, ShouldContainSubstring, "-e APP_ANDROID_ARCH=arm64-v8a")
		So(line, ShouldContainSubstring, "--workdir /home/user/wspace")
		So(line, ShouldEndWith, "walletbuild/android-builder:latest ./contrib/android/make_apk release")
	})
}

func TestRunCreatesLockDir(t *testing.T) {
	t.Parallel()

	Convey("Run works when the lock file's directory does not exist yet", t, func() {
		f := &executor.FakeCommander{CmdOutput: "ok\n"}
		c := &Client{Commander: f}

		lock := filepath.Join(t.TempDir(), "droidbuild", "build.lock")
		_, err := c.Run(context.Background(), RunArgs{
			Image:    "walletbuild/android-builder:latest",
			Command:  []string{"true"},
			LockFile: lock,
		})
		So(err, ShouldBeNil)
		So(f.Commands, ShouldHaveLength, 1)
		_, err = os.Stat(filepath.Dir(lock))
		So(err, ShouldBeNil)
	})
}

func TestImageExists(t *testing.T) {
	t.Parallel()

	Convey("ImageExists", t, func() {
		Convey("present image", func() {
			f := &executor.FakeCommander{CmdOutput: "sha256:deadbeef\n"}
			c := &Client{Commander: f}
			ok, err := c.ImageExists(context.Background(), "walletbuild/android-builder:latest")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("missing image", func() {
			f := &executor.FakeCommander{
				CmdOutput: "Error: No such image: walletbuild/android-builder:latest\n",
				Err:       errors.New("exit status 1"),
			}
			c := &Client{Commander: f}
			ok, err := c.ImageExists(context.Background(), "walletbuild/android-builder:latest")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestContainerName(t *testing.T) {
	t.Parallel()

	name := containerName("walletbuild/android-builder:latest")
	if !strings.HasPrefix(name, "android-builder-") {
		t.Fatalf("unexpected container name %q", name)
	}
	other := containerName("walletbuild/android-builder:latest")
	if name == other {
		t.Fatalf("container names must be unique, got %q twice", name)
	}
}
