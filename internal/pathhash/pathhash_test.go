// This file is part of dwarfidx.
//
// dwarfidx is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dwarfidx is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with dwarfidx.  If not, see <https://www.gnu.org/licenses/>.

package pathhash_test

import (
	"testing"

	"github.com/jetsetilly/dwarfidx/internal/pathhash"
)

func TestEquivalentForms(t *testing.T) {
	equivalent := [][]string{
		{"a/b/c", "a/./b/c", "a/b/d/../c", "a/b/c/"},
		{"/a/b", "/a/b/"},
		{"/../x", "/x"},
	}
	for _, group := range equivalent {
		want := pathhash.DirectoryHash(group[0])
		for _, p := range group[1:] {
			if got := pathhash.DirectoryHash(p); got != want {
				t.Errorf("DirectoryHash(%q) = %#x, want %#x (same as %q)", p, got, want, group[0])
			}
		}
	}
}

func TestDistinctForms(t *testing.T) {
	distinct := []string{"/a/b", "a/b", "../x", "x", "a/b/c"}
	seen := make(map[uint64]string)
	for _, p := range distinct {
		h := pathhash.DirectoryHash(p)
		if other, ok := seen[h]; ok {
			t.Errorf("DirectoryHash(%q) collided with DirectoryHash(%q)", p, other)
		}
		seen[h] = p
	}
}

func TestCanonicalizeAbsoluteSentinel(t *testing.T) {
	rel := pathhash.Canonicalize("a/b")
	abs := pathhash.Canonicalize("/a/b")
	if string(rel) == string(abs) {
		t.Fatalf("Canonicalize produced the same stream for %q and %q", "a/b", "/a/b")
	}
}

func TestCanonicalizeUpLevelAbsorbedAtRoot(t *testing.T) {
	got := pathhash.Canonicalize("/../x")
	want := pathhash.Canonicalize("/x")
	if string(got) != string(want) {
		t.Errorf("Canonicalize(%q) = %q, want %q", "/../x", got, want)
	}
}

func TestCanonicalizeUpLevelKeptWhenRelative(t *testing.T) {
	got := pathhash.Canonicalize("../x")
	want := pathhash.Canonicalize("x")
	if string(got) == string(want) {
		t.Errorf("Canonicalize(%q) should not equal Canonicalize(%q)", "../x", "x")
	}
}

func TestFingerprintDistinguishesDirectory(t *testing.T) {
	a := pathhash.Fingerprint(pathhash.Canonicalize("a/b"), "file.c")
	b := pathhash.Fingerprint(pathhash.Canonicalize("a/c"), "file.c")
	if a == b {
		t.Fatalf("Fingerprint collided across different directories for the same name")
	}
}

func TestFingerprintFreshStateIsNameAlone(t *testing.T) {
	a := pathhash.Fingerprint(nil, "file.c")
	b := pathhash.Fingerprint([]byte{}, "file.c")
	if a != b {
		t.Errorf("Fingerprint(nil, ...) != Fingerprint([]byte{}, ...)")
	}
}
