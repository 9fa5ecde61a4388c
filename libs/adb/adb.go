// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package adb drives the adb CLI for the install/debug half of the
// workflow: pushing an APK to a device, following the app's logcat and
// pulling app-private files out via run-as.
package adb

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"

	"droidbuild/libs/executor"
)

const installTimeout = 5 * time.Minute

// Client runs adb commands through a Commander.
type Client struct {
	Commander executor.Commander

	// Serial pins all commands to one device. Required when more
	// than one device is attached.
	Serial string
}

// NewClient returns a Client that runs adb on the host.
func NewClient(serial string) *Client {
	return &Client{Commander: &executor.ExecCommander{}, Serial: serial}
}

func (c *Client) argv(args ...string) []string {
	if c.Serial != "" {
		return append([]string{"-s", c.Serial}, args...)
	}
	return args
}

// Devices returns the serials of attached devices in "device" state.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "adb", "devices")
	out, err := c.Commander.Exec(cmd)
	if err != nil {
		return nil, errors.Annotate(err, "adb devices").Err()
	}
	var serials []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// Install installs the APK, replacing any existing install.
func (c *Client) Install(ctx context.Context, apkPath string) error {
	ictx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()
	cmd := exec.CommandContext(ictx, "adb", c.argv("install", "-r", apkPath)...)
	out, err := c.Commander.Exec(cmd)
	if err != nil {
		return errors.Annotate(err, "adb install %q", apkPath).Err()
	}
	// adb reports some install failures on stdout with a zero exit.
	if strings.Contains(string(out), "Failure") {
		return errors.Reason("adb install %q: %s", apkPath, strings.TrimSpace(string(out))).Err()
	}
	return nil
}

// Logcat streams device logs to w until ctx is cancelled, keeping only
// lines that match any of the given tags (all lines when tags is empty).
// This is the FAQ's `adb logcat | grep` step.
func (c *Client) Logcat(ctx context.Context, w io.Writer, tags []string) error {
	cmd := exec.CommandContext(ctx, "adb", c.argv("logcat")...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	if err := c.Commander.Start(cmd); err != nil {
		return errors.Annotate(err, "adb logcat").Err()
	}
	done := make(chan error, 1)
	go func() {
		done <- c.Commander.Wait(cmd)
		pw.Close()
	}()
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 256*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if matchesAny(line, tags) {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				pr.CloseWithError(err)
				return errors.Annotate(err, "write logcat line").Err()
			}
		}
	}
	if serr := scanner.Err(); serr != nil {
		// Fail the writer's side too, or Wait blocks forever on the
		// unread pipe.
		pr.CloseWithError(serr)
		return errors.Annotate(serr, "read logcat stream").Err()
	}
	err := <-done
	if ctx.Err() != nil {
		// Cancellation is the normal way to stop following logs.
		return nil
	}
	return errors.Annotate(err, "adb logcat").Err()
}

func matchesAny(line string, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if strings.Contains(line, t) {
			return true
		}
	}
	return false
}

// PullAppData tars the app-private data directory of pkg to w using
// run-as, which works on debuggable builds without root.
func (c *Client) PullAppData(ctx context.Context, pkg string, w io.Writer) error {
	script := "run-as " + pkg + " tar -c -C /data/data/" + pkg + " ."
	cmd := exec.CommandContext(ctx, "adb", c.argv("exec-out", script)...)
	stdout, stderr, err := c.Commander.Output(cmd)
	if err != nil {
		return errors.Annotate(err, "adb run-as %q: %s", pkg, strings.TrimSpace(string(stderr))).Err()
	}
	if _, err := w.Write(stdout); err != nil {
		return errors.Annotate(err, "write app data for %q", pkg).Err()
	}
	return nil
}
