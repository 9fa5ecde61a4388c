// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package apkfile reads APK archives and produces per-file content-hash
// manifests for reproducibility verification. An APK is a zip; builds
// made with the packaging toolchain additionally carry the application
// payload as one embedded tar (optionally gzipped) asset, whose members
// are expanded into the manifest so a payload difference points at the
// exact file instead of one opaque blob.
package apkfile

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.chromium.org/luci/common/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultAssetNames are the embedded payload asset names probed in
// order. Current toolchains emit private.tar; older ones shipped the
// same gzip tar under an .mp3 name to dodge asset compression.
var DefaultAssetNames = []string{"assets/private.tar", "assets/private.mp3"}

// Manifest maps an entry path to the hex SHA-256 of its content.
// Members of an expanded asset appear as "<asset>/<member>".
type Manifest map[string]string

// ReadOptions control manifest construction.
type ReadOptions struct {
	// AssetNames lists embedded asset entries to expand. Nil means
	// DefaultAssetNames. An absent asset is not an error; a present
	// but unreadable one is.
	AssetNames []string
}

// Read builds the manifest of the APK at apkPath.
func Read(apkPath string, opts ReadOptions) (Manifest, error) {
	r, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, errors.Annotate(err, "open apk %q", apkPath).Err()
	}
	defer r.Close()

	assets := opts.AssetNames
	if assets == nil {
		assets = DefaultAssetNames
	}
	expand := make(map[string]bool, len(assets))
	for _, a := range assets {
		expand[a] = true
	}

	m := make(Manifest, len(r.File))
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		f := f
		eg.Go(func() error {
			sum, members, err := hashEntry(f, expand[f.Name])
			if err != nil {
				return errors.Annotate(err, "hash %q in %q", f.Name, apkPath).Err()
			}
			mu.Lock()
			defer mu.Unlock()
			merr := m.add(f.Name, sum)
			for p, s := range members {
				if merr != nil {
					break
				}
				merr = m.add(p, s)
			}
			return errors.Annotate(merr, "apk %q", apkPath).Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// add records one entry, rejecting duplicate paths. Zip permits
// duplicate names, and an expanded member can collide with a real
// entry; either would let one hash mask the other in a comparison.
func (m Manifest) add(p, sum string) error {
	if _, ok := m[p]; ok {
		return errors.Reason("duplicate entry %q", p).Err()
	}
	m[p] = sum
	return nil
}

// hashEntry hashes one zip entry and, when expand is set, the members
// of the tar payload it carries.
func hashEntry(f *zip.File, expand bool) (string, Manifest, error) {
	rc, err := f.Open()
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	if !expand {
		h := sha256.New()
		if _, err := io.Copy(h, rc); err != nil {
			return "", nil, err
		}
		return hex.EncodeToString(h.Sum(nil)), nil, nil
	}

	// The asset is hashed raw and expanded; both go in the manifest so
	// container-level differences (member order, mtimes) still show up.
	h := sha256.New()
	tee := io.TeeReader(rc, h)
	members, err := expandPayload(tee, f.Name)
	if err != nil {
		return "", nil, err
	}
	// The tar reader stops at the end-of-archive marker; drain the
	// rest so the raw hash covers every byte of the entry.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return "", nil, err
	}
	return hex.EncodeToString(h.Sum(nil)), members, nil
}

// expandPayload reads a tar or gzipped tar stream and hashes each
// regular-file member under "<asset>/<member>".
func expandPayload(r io.Reader, asset string) (Manifest, error) {
	br := newPeekReader(r)
	var tr *tar.Reader
	if br.isGzip() {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Annotate(err, "gunzip payload").Err()
		}
		defer gz.Close()
		tr = tar.NewReader(gz)
	} else {
		tr = tar.NewReader(br)
	}

	members := Manifest{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "read payload tar").Err()
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		h := sha256.New()
		if _, err := io.Copy(h, tr); err != nil {
			return nil, errors.Annotate(err, "hash payload member %q", hdr.Name).Err()
		}
		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		members[asset+"/"+name] = hex.EncodeToString(h.Sum(nil))
	}
	return members, nil
}

// IsSignatureEntry reports whether the entry only exists because the
// APK was signed. These differ between a signed and an unsigned build
// of identical payloads.
func IsSignatureEntry(name string) bool {
	if name == "META-INF/MANIFEST.MF" {
		return true
	}
	if !strings.HasPrefix(name, "META-INF/") {
		return false
	}
	switch strings.ToUpper(path.Ext(name)) {
	case ".RSA", ".DSA", ".EC", ".SF":
		return true
	}
	return false
}

// Paths returns the manifest paths in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// WriteTo writes the manifest as sorted "hash  path" lines, the layout
// produced by `sha256sum` so listings diff cleanly with host tools.
func (m Manifest) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, p := range m.Paths() {
		c, err := fmt.Fprintf(w, "%s  %s\n", m[p], p)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// String renders the manifest as WriteTo would.
func (m Manifest) String() string {
	var sb strings.Builder
	m.WriteTo(&sb) // strings.Builder never errors
	return sb.String()
}

// peekReader lets us sniff the gzip magic without consuming it.
type peekReader struct {
	r    io.Reader
	head []byte
	err  error
}

func newPeekReader(r io.Reader) *peekReader {
	head := make([]byte, 2)
	n, err := io.ReadFull(r, head)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// Tiny or empty payload: hand the bytes through, no magic.
		return &peekReader{r: r, head: head[:n]}
	}
	return &peekReader{r: r, head: head, err: err}
}

func (p *peekReader) isGzip() bool {
	return len(p.head) == 2 && p.head[0] == 0x1f && p.head[1] == 0x8b
}

func (p *peekReader) Read(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	if len(p.head) > 0 {
		n := copy(b, p.head)
		p.head = p.head[n:]
		return n, nil
	}
	return p.r.Read(b)
}
