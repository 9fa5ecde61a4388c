// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apkfile

import (
	"fmt"
	"io"
	"sort"
)

// DiffOptions control manifest comparison.
type DiffOptions struct {
	// IgnoreSigning drops signature-only entries before comparing, so
	// a signed build can be checked against an unsigned one.
	IgnoreSigning bool
}

// DiffResult describes how two manifests differ.
type DiffResult struct {
	// OnlyInA and OnlyInB are entry paths present in one APK only.
	OnlyInA, OnlyInB []string
	// Changed are entry paths present in both with different hashes.
	Changed []string
	// Compared counts the entries examined after filtering.
	Compared int
}

// Identical reports bit-for-bit equivalence of the compared entries.
func (r *DiffResult) Identical() bool {
	return len(r.OnlyInA) == 0 && len(r.OnlyInB) == 0 && len(r.Changed) == 0
}

// Report writes a human-readable summary to w.
func (r *DiffResult) Report(w io.Writer, nameA, nameB string) {
	if r.Identical() {
		fmt.Fprintf(w, "%d entries compared: APKs are identical\n", r.Compared)
		return
	}
	for _, p := range r.OnlyInA {
		fmt.Fprintf(w, "only in %s: %s\n", nameA, p)
	}
	for _, p := range r.OnlyInB {
		fmt.Fprintf(w, "only in %s: %s\n", nameB, p)
	}
	for _, p := range r.Changed {
		fmt.Fprintf(w, "content differs: %s\n", p)
	}
	fmt.Fprintf(w, "%d entries compared, %d differ\n",
		r.Compared, len(r.OnlyInA)+len(r.OnlyInB)+len(r.Changed))
}

// Diff compares two manifests.
func Diff(a, b Manifest, opts DiffOptions) *DiffResult {
	keep := func(p string) bool {
		return !opts.IgnoreSigning || !IsSignatureEntry(p)
	}
	res := &DiffResult{}
	seen := map[string]bool{}
	for p, ha := range a {
		if !keep(p) {
			continue
		}
		seen[p] = true
		res.Compared++
		hb, ok := b[p]
		switch {
		case !ok:
			res.OnlyInA = append(res.OnlyInA, p)
		case ha != hb:
			res.Changed = append(res.Changed, p)
		}
	}
	for p := range b {
		if !keep(p) || seen[p] {
			continue
		}
		res.Compared++
		res.OnlyInB = append(res.OnlyInB, p)
	}
	sort.Strings(res.OnlyInA)
	sort.Strings(res.OnlyInB)
	sort.Strings(res.Changed)
	return res
}
