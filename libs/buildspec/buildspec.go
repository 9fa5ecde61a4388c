// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildspec loads the per-project droidbuild.yaml descriptor:
// what app is being packaged, where its version is pinned in source,
// which builder image to use and where things get mounted inside the
// container.
package buildspec

import (
	"os"
	"path/filepath"
	"regexp"

	homedir "github.com/mitchellh/go-homedir"
	"go.chromium.org/luci/common/errors"
	yaml "gopkg.in/yaml.v2"
)

// DefaultFile is the descriptor name probed in the project dir.
const DefaultFile = "droidbuild.yaml"

// Spec is the parsed droidbuild.yaml.
type Spec struct {
	// App is the artifact base name, e.g. "Wallet".
	App string `yaml:"app"`
	// Package is the Android application id, e.g. "org.wallet.wallet".
	Package string `yaml:"package"`

	// VersionFile is the source file carrying the version string,
	// relative to the project dir.
	VersionFile string `yaml:"version_file"`
	// VersionPattern is a regexp whose first group captures the
	// version in VersionFile.
	VersionPattern string `yaml:"version_pattern"`

	// ABIs are the target ABIs to build, first is the default.
	ABIs []string `yaml:"abis"`

	Image Image `yaml:"image"`

	// WorkspaceMount is the fixed path the project dir is mounted at
	// inside the container.
	WorkspaceMount string `yaml:"workspace_mount"`
	// GradleCache is the host dir mounted into the container so Gradle
	// downloads survive across builds.
	GradleCache string `yaml:"gradle_cache"`
	// GradleCacheMount is where GradleCache lands in the container.
	GradleCacheMount string `yaml:"gradle_cache_mount"`
	// Keystore is the host keystore mounted read-only for release
	// builds.
	Keystore string `yaml:"keystore"`
	// KeystoreMount is where Keystore lands in the container.
	KeystoreMount string `yaml:"keystore_mount"`

	// BuildCommand is the packaging entry point run in the container,
	// relative to WorkspaceMount.
	BuildCommand []string `yaml:"build_command"`
	// SpecFile is the packaging tool's own spec file, used as a sanity
	// check that the project dir is really a packageable tree.
	SpecFile string `yaml:"spec_file"`

	// ArtifactDir is where the packaging toolchain drops the APK,
	// relative to the project dir.
	ArtifactDir string `yaml:"artifact_dir"`
}

// Image names the builder image.
type Image struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
	// Dockerfile and Context, relative to the project dir, are used by
	// `image-build`.
	Dockerfile string `yaml:"dockerfile"`
	Context    string `yaml:"context"`
}

// Ref returns the full image reference.
func (i Image) Ref() string {
	return i.Name + ":" + i.Tag
}

// Load reads and validates the spec at path, filling defaults.
func Load(path string) (*Spec, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "read buildspec").Err()
	}
	s := &Spec{}
	if err := yaml.UnmarshalStrict(blob, s); err != nil {
		return nil, errors.Annotate(err, "parse buildspec %q", path).Err()
	}
	s.fillDefaults()
	if err := s.validate(); err != nil {
		return nil, errors.Annotate(err, "validate buildspec %q", path).Err()
	}
	return s, nil
}

func (s *Spec) fillDefaults() {
	if s.Image.Tag == "" {
		s.Image.Tag = "latest"
	}
	if s.Image.Dockerfile == "" {
		s.Image.Dockerfile = "contrib/android/Dockerfile"
	}
	if s.Image.Context == "" {
		s.Image.Context = filepath.Dir(s.Image.Dockerfile)
	}
	if len(s.ABIs) == 0 {
		s.ABIs = []string{"arm64-v8a", "armeabi-v7a"}
	}
	if s.WorkspaceMount == "" {
		s.WorkspaceMount = "/home/user/wspace"
	}
	if s.GradleCacheMount == "" {
		s.GradleCacheMount = "/home/user/.gradle"
	}
	if s.KeystoreMount == "" {
		s.KeystoreMount = "/home/user/.keystore"
	}
	if len(s.BuildCommand) == 0 {
		s.BuildCommand = []string{"./contrib/android/make_apk"}
	}
	if s.SpecFile == "" {
		s.SpecFile = "buildozer.spec"
	}
	if s.ArtifactDir == "" {
		s.ArtifactDir = "bin"
	}
}

func (s *Spec) validate() error {
	switch {
	case s.App == "":
		return errors.Reason("app is required").Err()
	case s.Package == "":
		return errors.Reason("package is required").Err()
	case s.VersionFile == "":
		return errors.Reason("version_file is required").Err()
	case s.VersionPattern == "":
		return errors.Reason("version_pattern is required").Err()
	case s.Image.Name == "":
		return errors.Reason("image.name is required").Err()
	}
	if _, err := regexp.Compile(s.VersionPattern); err != nil {
		return errors.Annotate(err, "version_pattern").Err()
	}
	return nil
}

// Version extracts the app version from the project source tree.
func (s *Spec) Version(projectDir string) (string, error) {
	p := filepath.Join(projectDir, s.VersionFile)
	blob, err := os.ReadFile(p)
	if err != nil {
		return "", errors.Annotate(err, "read version file").Err()
	}
	re := regexp.MustCompile(s.VersionPattern)
	m := re.FindSubmatch(blob)
	if len(m) < 2 {
		return "", errors.Reason("version_pattern %q matched nothing in %q", s.VersionPattern, p).Err()
	}
	return string(m[1]), nil
}

// GradleCachePath returns the expanded host gradle cache dir, creating
// it when absent so the first build does not trip on the mount.
func (s *Spec) GradleCachePath() (string, error) {
	if s.GradleCache == "" {
		return "", nil
	}
	p, err := homedir.Expand(s.GradleCache)
	if err != nil {
		return "", errors.Annotate(err, "expand gradle cache dir").Err()
	}
	if err := os.MkdirAll(p, 0755); err != nil {
		return "", errors.Annotate(err, "create gradle cache dir").Err()
	}
	return p, nil
}
