// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repro

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/subcommands"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeApp struct {
	out, errOut bytes.Buffer
}

func (a *fakeApp) GetName() string                                     { return "droidbuild" }
func (a *fakeApp) GetTitle() string                                    { return "droidbuild test" }
func (a *fakeApp) GetCommands() []*subcommands.Command                 { return nil }
func (a *fakeApp) GetOut() io.Writer                                   { return &a.out }
func (a *fakeApp) GetErr() io.Writer                                   { return &a.errOut }
func (a *fakeApp) GetEnvVars() map[string]subcommands.EnvVarDefinition { return nil }

func writeAPK(t *testing.T, dir, name string, entries map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for ename, content := range entries {
		w, err := zw.Create(ename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDiffExitCodes(t *testing.T) {
	t.Parallel()

	Convey("diff exit codes", t, func() {
		dir := t.TempDir()
		base := map[string][]byte{
			"AndroidManifest.xml": []byte("<manifest/>"),
			"classes.dex":         []byte("dex\n035"),
		}
		a := writeAPK(t, dir, "a.apk", base)

		Convey("identical builds exit 0", func() {
			b := writeAPK(t, dir, "b.apk", base)
			app := &fakeApp{}
			c := Diff.CommandRun().(*diffRun)
			So(c.Run(app, []string{a, b}, nil), ShouldEqual, 0)
			So(app.out.String(), ShouldContainSubstring, "identical")
		})

		Convey("differing builds exit 1", func() {
			b := writeAPK(t, dir, "b.apk", map[string][]byte{
				"AndroidManifest.xml": []byte("<manifest/>"),
				"classes.dex":         []byte("dex\n036"),
			})
			app := &fakeApp{}
			c := Diff.CommandRun().(*diffRun)
			So(c.Run(app, []string{a, b}, nil), ShouldEqual, 1)
			So(app.out.String(), ShouldContainSubstring, "content differs: classes.dex")
		})

		Convey("an unreadable APK exits 2", func() {
			app := &fakeApp{}
			c := Diff.CommandRun().(*diffRun)
			So(c.Run(app, []string{a, filepath.Join(dir, "missing.apk")}, nil), ShouldEqual, 2)
			So(app.errOut.String(), ShouldNotBeEmpty)
		})

		Convey("wrong argument count exits 2", func() {
			app := &fakeApp{}
			c := Diff.CommandRun().(*diffRun)
			// subcommands.Run installs Usage; direct Run calls must too.
			c.GetFlags().Usage = func() {}
			So(c.Run(app, []string{a}, nil), ShouldEqual, 2)
			So(app.errOut.String(), ShouldContainSubstring, "two APK paths")
		})
	})
}
