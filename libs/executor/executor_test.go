// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package executor

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeCommanderRecords(t *testing.T) {
	t.Parallel()

	f := &FakeCommander{CmdOutput: "ok"}
	out, err := f.Exec(exec.Command("docker", "image", "ls"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	_, _, err = f.Output(exec.Command("adb", "devices"))
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"docker", "image", "ls"},
		{"adb", "devices"},
	}, f.Commands)
	assert.Equal(t, "docker image ls", f.CommandLine(0))
	assert.Equal(t, "", f.CommandLine(5))
}

func TestFakeCommanderFn(t *testing.T) {
	t.Parallel()

	f := &FakeCommander{
		FakeFn: func(cmd *exec.Cmd) ([]byte, error) {
			if cmd.Args[0] == "adb" {
				return nil, errors.New("device offline")
			}
			return []byte("fine"), nil
		},
	}
	_, err := f.Exec(exec.Command("adb", "install", "a.apk"))
	assert.ErrorContains(t, err, "device offline")
	out, err := f.Exec(exec.Command("docker", "ps"))
	require.NoError(t, err)
	assert.Equal(t, "fine", string(out))
}

func TestFakeCommanderWaitWritesStdout(t *testing.T) {
	t.Parallel()

	f := &FakeCommander{CmdOutput: "line1\nline2\n"}
	cmd := exec.Command("adb", "logcat")
	var sb strings.Builder
	cmd.Stdout = &sb
	require.NoError(t, f.Start(cmd))
	require.NoError(t, f.Wait(cmd))
	assert.Equal(t, "line1\nline2\n", sb.String())
}
