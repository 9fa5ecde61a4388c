// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package executor

import (
	"os/exec"
	"strings"
)

// FakeCommander returns canned results instead of running anything.
//
// If FakeFn is set it decides the result per command; otherwise every
// command yields CmdOutput/Err. Commands records the argv of each call
// in execution order.
type FakeCommander struct {
	CmdOutput string
	Err       error
	FakeFn    func(*exec.Cmd) ([]byte, error)

	Commands [][]string
}

func (f *FakeCommander) record(cmd *exec.Cmd) {
	f.Commands = append(f.Commands, append([]string(nil), cmd.Args...))
}

func (f *FakeCommander) Exec(cmd *exec.Cmd) ([]byte, error) {
	f.record(cmd)
	if f.FakeFn != nil {
		return f.FakeFn(cmd)
	}
	return []byte(f.CmdOutput), f.Err
}

func (f *FakeCommander) Output(cmd *exec.Cmd) ([]byte, []byte, error) {
	f.record(cmd)
	if f.FakeFn != nil {
		out, err := f.FakeFn(cmd)
		return out, nil, err
	}
	return []byte(f.CmdOutput), nil, f.Err
}

func (f *FakeCommander) Start(cmd *exec.Cmd) error {
	f.record(cmd)
	if f.FakeFn != nil {
		_, err := f.FakeFn(cmd)
		return err
	}
	return f.Err
}

func (f *FakeCommander) Wait(cmd *exec.Cmd) error {
	if cmd.Stdout != nil && f.CmdOutput != "" {
		_, _ = cmd.Stdout.Write([]byte(f.CmdOutput))
	}
	return f.Err
}

// CommandLine returns the i-th recorded command as a single string,
// which keeps test assertions readable.
func (f *FakeCommander) CommandLine(i int) string {
	if i < 0 || i >= len(f.Commands) {
		return ""
	}
	return strings.Join(f.Commands[i], " ")
}
