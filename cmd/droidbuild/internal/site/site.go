// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package site contains site local constants for the droidbuild tool.
package site

import (
	"os"
	"path/filepath"
)

// VersionNumber is the version number for the droidbuild tool.
const VersionNumber = 1

// DefaultLogcatTags are the log tags followed by `droidbuild logcat`;
// the packaging runtime logs under "python" and crashes land under
// "AndroidRuntime".
var DefaultLogcatTags = []string{"python", "AndroidRuntime"}

// BuildLockFile serializes packaging runs that share the Gradle cache.
func BuildLockFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "droidbuild", "build.lock")
}
