// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package executor wraps os/exec so that commands issued against host
// tooling (docker, adb, apksigner) can be faked in tests.
package executor

import (
	"fmt"
	"os/exec"
	"strings"
)

// Commander is the interface the droidbuild wrappers use to run
// host commands.
type Commander interface {
	// Exec runs cmd to completion and returns its combined output.
	Exec(cmd *exec.Cmd) ([]byte, error)

	// Output runs cmd to completion and returns stdout and stderr
	// separately.
	Output(cmd *exec.Cmd) (stdout, stderr []byte, err error)

	// Start starts cmd without waiting for it.
	Start(cmd *exec.Cmd) error

	// Wait waits for a previously started cmd.
	Wait(cmd *exec.Cmd) error
}

// ExecCommander runs commands on the host.
type ExecCommander struct{}

func (e *ExecCommander) Exec(cmd *exec.Cmd) ([]byte, error) {
	s, err := cmd.CombinedOutput()
	if err != nil {
		return s, fmt.Errorf("%w: %s", err, string(s))
	}
	return s, nil
}

func (e *ExecCommander) Output(cmd *exec.Cmd) ([]byte, []byte, error) {
	var se strings.Builder
	cmd.Stderr = &se
	so, err := cmd.Output()
	if err != nil {
		return so, []byte(se.String()), fmt.Errorf("%w: %s", err, se.String())
	}
	return so, []byte(se.String()), nil
}

func (e *ExecCommander) Start(cmd *exec.Cmd) error {
	return cmd.Start()
}

func (e *ExecCommander) Wait(cmd *exec.Cmd) error {
	return cmd.Wait()
}
