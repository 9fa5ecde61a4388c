// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package docker drives the docker CLI on the build host. The builder
// image and every packaging run go through here; nothing in this repo
// talks to the docker daemon API directly.
package docker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"go.chromium.org/luci/common/errors"

	"droidbuild/libs/executor"
)

const (
	buildTimeout = 2 * time.Hour
	runTimeout   = 3 * time.Hour
	probeTimeout = time.Minute
)

// Client runs docker commands through a Commander.
type Client struct {
	Commander executor.Commander
}

// NewClient returns a Client that runs commands on the host.
func NewClient() *Client {
	return &Client{Commander: &executor.ExecCommander{}}
}

// Mount is a host path bound into the container.
type Mount struct {
	Host      string
	Container string
	ReadOnly  bool
}

func (m Mount) arg() (string, error) {
	host, err := homedir.Expand(m.Host)
	if err != nil {
		return "", errors.Annotate(err, "expand mount %q", m.Host).Err()
	}
	v := host + ":" + m.Container
	if m.ReadOnly {
		v += ":ro"
	}
	return v, nil
}

// BuildImageArgs describes a `docker image build` invocation.
type BuildImageArgs struct {
	ContextDir string
	Dockerfile string
	Tag        string
	NoCache    bool
	BuildArgs  map[string]string
}

// BuildImage builds the builder image.
func (c *Client) BuildImage(ctx context.Context, a BuildImageArgs) error {
	args := []string{"image", "build", "-t", a.Tag}
	if a.Dockerfile != "" {
		args = append(args, "-f", a.Dockerfile)
	}
	if a.NoCache {
		args = append(args, "--no-cache")
	}
	bargKeys := make([]string, 0, len(a.BuildArgs))
	for k := range a.BuildArgs {
		bargKeys = append(bargKeys, k)
	}
	sort.Strings(bargKeys)
	for _, k := range bargKeys {
		args = append(args, "--build-arg", k+"="+a.BuildArgs[k])
	}
	args = append(args, a.ContextDir)

	bctx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()
	cmd := exec.CommandContext(bctx, "docker", args...)
	log.Printf("Build image %q: %q", a.Tag, cmd)
	out, err := c.Commander.Exec(cmd)
	if err != nil {
		return errors.Annotate(err, "build image %q", a.Tag).Err()
	}
	log.Printf("Build image %q: done.\n%s", a.Tag, tail(string(out), 20))
	return nil
}

// RunArgs describes a one-shot `docker run --rm` invocation.
type RunArgs struct {
	Image   string
	Mounts  []Mount
	Env     map[string]string
	Workdir string
	User    string
	Command []string

	// LockFile, when set, serializes runs that share mutable host
	// state (the Gradle cache mount).
	LockFile string
}

// Run runs the image to completion and returns its combined output.
func (c *Client) Run(ctx context.Context, a RunArgs) (string, error) {
	if a.LockFile != "" {
		// The lock dir may not exist yet on a fresh host; flock cannot
		// create it.
		if err := os.MkdirAll(filepath.Dir(a.LockFile), 0755); err != nil {
			return "", errors.Annotate(err, "create lock dir for %q", a.LockFile).Err()
		}
		l := flock.New(a.LockFile)
		if err := l.Lock(); err != nil {
			return "", errors.Annotate(err, "lock %q", a.LockFile).Err()
		}
		defer l.Unlock()
	}

	name := containerName(a.Image)
	args := []string{"run", "--rm", "--name", name}
	for _, m := range a.Mounts {
		v, err := m.arg()
		if err != nil {
			return "", err
		}
		args = append(args, "-v", v)
	}
	envKeys := make([]string, 0, len(a.Env))
	for k := range a.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		if v := a.Env[k]; v == "" {
			// Pass-through from the host environment; keeps secrets
			// out of the argv that gets logged.
			args = append(args, "-e", k)
		} else {
			args = append(args, "-e", k+"="+v)
		}
	}
	if a.Workdir != "" {
		args = append(args, "--workdir", a.Workdir)
	}
	if a.User != "" {
		args = append(args, "--user", a.User)
	}
	args = append(args, a.Image)
	args = append(args, a.Command...)

	rctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	cmd := exec.CommandContext(rctx, "docker", args...)
	log.Printf("Run container %q: %q", name, cmd)
	out, err := c.Commander.Exec(cmd)
	if err != nil {
		return string(out), errors.Annotate(err, "run container %q", name).Err()
	}
	return string(out), nil
}

// ImageExists reports whether the image is present on the host.
func (c *Client) ImageExists(ctx context.Context, tag string) (bool, error) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(pctx, "docker", "image", "inspect", "--format", "{{.Id}}", tag)
	out, err := c.Commander.Exec(cmd)
	if err != nil {
		if strings.Contains(string(out), "No such image") {
			return false, nil
		}
		return false, errors.Annotate(err, "inspect image %q", tag).Err()
	}
	return true, nil
}

// containerName derives a unique container name from the image tag so
// that concurrent runs never collide.
func containerName(image string) string {
	base := image
	if i := strings.LastIndexAny(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, ":"); i >= 0 {
		base = base[:i]
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
