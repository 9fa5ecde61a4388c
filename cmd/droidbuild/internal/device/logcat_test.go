// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/maruel/subcommands"
	. "github.com/smartystreets/goconvey/convey"

	"droidbuild/libs/adb"
	"droidbuild/libs/executor"
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

func TestLogcatCommand(t *testing.T) {
	Convey("logcat writes filtered lines to the -output file", t, func() {
		f := &executor.FakeCommander{
			CmdOutput: "I/python  : boot\nI/OtherTag: noise\nE/AndroidRuntime: crash\n",
			FakeFn: func(cmd *exec.Cmd) ([]byte, error) {
				if len(cmd.Args) > 1 && cmd.Args[1] == "devices" {
					return []byte("List of devices attached\nemulator-5554\tdevice\n"), nil
				}
				return nil, nil
			},
		}
		orig := newClient
		newClient = func(serial string) *adb.Client {
			return &adb.Client{Commander: f, Serial: serial}
		}
		defer func() { newClient = orig }()

		out := filepath.Join(t.TempDir(), "logs", "app.log")
		So(os.MkdirAll(filepath.Dir(out), 0755), ShouldBeNil)
		c := Logcat.CommandRun().(*logcatRun)
		c.output = out
		app := &fakeApp{}

		So(c.Run(app, nil, nil), ShouldEqual, 0)

		want := "I/python  : boot\nE/AndroidRuntime: crash\n"
		blob, err := os.ReadFile(out)
		So(err, ShouldBeNil)
		So(string(blob), ShouldEqual, want)
		So(app.out.String(), ShouldEqual, want)
	})
}
