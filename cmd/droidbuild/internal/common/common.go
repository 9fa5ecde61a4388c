// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package common holds flag types shared by the droidbuild subcommands.
package common

import (
	"flag"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"go.chromium.org/luci/common/errors"

	"droidbuild/libs/buildspec"
)

// ProjectFlags locate the wallet project tree and its buildspec. Every
// subcommand that touches the project registers these.
type ProjectFlags struct {
	projectDir string
	specFile   string
}

// Register sets up the common project flags.
func (f *ProjectFlags) Register(fl *flag.FlagSet) {
	fl.StringVar(&f.projectDir, "project", ".", "Path to the wallet project checkout.")
	fl.StringVar(&f.specFile, "spec", "", "Path to droidbuild.yaml (default: <project>/droidbuild.yaml).")
}

// ProjectDir returns the absolute project dir.
func (f *ProjectFlags) ProjectDir() (string, error) {
	p, err := homedir.Expand(f.projectDir)
	if err != nil {
		return "", errors.Annotate(err, "expand -project").Err()
	}
	p, err = filepath.Abs(p)
	if err != nil {
		return "", errors.Annotate(err, "resolve -project").Err()
	}
	if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
		return "", errors.Reason("-project %q is not a directory", p).Err()
	}
	return p, nil
}

// Load resolves the project dir and parses its buildspec.
func (f *ProjectFlags) Load() (*buildspec.Spec, string, error) {
	dir, err := f.ProjectDir()
	if err != nil {
		return nil, "", err
	}
	specPath := f.specFile
	if specPath == "" {
		specPath = filepath.Join(dir, buildspec.DefaultFile)
	}
	spec, err := buildspec.Load(specPath)
	if err != nil {
		return nil, "", err
	}
	return spec, dir, nil
}
