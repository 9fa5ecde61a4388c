// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildspec

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const minimalSpec = `
app: Wallet
package: org.wallet.wallet
version_file: wallet/version.py
version_pattern: 'APK_VERSION = "([0-9.]+)"'
image:
  name: walletbuild/android-builder
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	t.Parallel()

	Convey("Load", t, func() {
		Convey("fills defaults", func() {
			s, err := Load(writeSpec(t, minimalSpec))
			So(err, ShouldBeNil)
			So(s.Image.Ref(), ShouldEqual, "walletbuild/android-builder:latest")
			So(s.ABIs, ShouldResemble, []string{"arm64-v8a", "armeabi-v7a"})
			So(s.WorkspaceMount, ShouldEqual, "/home/user/wspace")
			So(s.GradleCacheMount, ShouldEqual, "/home/user/.gradle")
			So(s.ArtifactDir, ShouldEqual, "bin")
			So(s.SpecFile, ShouldEqual, "buildozer.spec")
			So(s.BuildCommand, ShouldResemble, []string{"./contrib/android/make_apk"})
			So(s.Image.Context, ShouldEqual, "contrib/android")
		})

		Convey("rejects missing fields", func() {
			_, err := Load(writeSpec(t, "app: Wallet\n"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "package is required")
		})

		Convey("rejects unknown fields", func() {
			_, err := Load(writeSpec(t, minimalSpec+"bogus_key: 1\n"))
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a broken version pattern", func() {
			bad := `
app: Wallet
package: org.wallet.wallet
version_file: v.py
version_pattern: '(['
image:
  name: img
`
			_, err := Load(writeSpec(t, bad))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "version_pattern")
		})
	})
}

func TestVersion(t *testing.T) {
	t.Parallel()

	Convey("Version extracts the pinned version from source", t, func() {
		dir := t.TempDir()
		So(os.MkdirAll(filepath.Join(dir, "wallet"), 0755), ShouldBeNil)
		src := "LIB_VERSION = 'x'\nAPK_VERSION = \"4.4.6\"\n"
		So(os.WriteFile(filepath.Join(dir, "wallet", "version.py"), []byte(src), 0644), ShouldBeNil)

		s, err := Load(writeSpec(t, minimalSpec))
		So(err, ShouldBeNil)
		v, err := s.Version(dir)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "4.4.6")

		Convey("no match is an error", func() {
			So(os.WriteFile(filepath.Join(dir, "wallet", "version.py"), []byte("nothing"), 0644), ShouldBeNil)
			_, err := s.Version(dir)
			So(err, ShouldNotBeNil)
		})
	})
}
