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

// Package pathhash canonicalizes a line-program include-directory path and
// combines it with a file name to produce the 64-bit fingerprint that
// disambiguates same-named DIEs across translation units.
//
// Canonicalization walks path components right-to-left: this makes ".."
// resolution local and streamable without a component stack, because by
// the time a ".." is seen (reading right to left, i.e. walking backwards
// through the path) it can immediately cancel the very next real component
// the walk encounters, rather than needing to look ahead.
package pathhash

import (
	"strings"

	"github.com/dchest/siphash"
)

// siphash key. The fingerprint only needs to be stable and well-distributed
// within one process's lifetime (it disambiguates DIEs within a single
// index build, never persisted or compared across runs), so a fixed key is
// fine - there is no adversary crafting paths to cause collisions.
const (
	k0 = 0x646f7267396c6c61
	k1 = 0x736f757263656d61
)

// Canonicalize returns the canonical byte stream for path, per the
// right-to-left component walk described in the package doc. Two paths
// produce an identical stream iff they denote the same location once "."
// is dropped, ".." is resolved, and repeated slashes are collapsed,
// distinguishing absolute from relative paths.
func Canonicalize(path string) []byte {
	absolute := strings.HasPrefix(path, "/")

	var tokens []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		default:
			tokens = append(tokens, part)
		}
	}

	var out []byte
	var pendingUp int
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i] == ".." {
			pendingUp++
			continue
		}
		if pendingUp > 0 {
			pendingUp--
			continue
		}
		out = append(out, tokens[i]...)
		out = append(out, '/')
	}

	if absolute {
		// ".." components above the root are absorbed: they have nowhere
		// left to cancel, and the absolute sentinel below already makes
		// this stream distinct from any relative path's.
		out = append(out, '/')
	} else {
		for ; pendingUp > 0; pendingUp-- {
			out = append(out, '.', '.', '/')
		}
	}

	return out
}

// DirectoryHash returns the siphash of path's canonical form. Two paths
// hash identically iff Canonicalize produces the same bytes for both.
func DirectoryHash(path string) uint64 {
	return siphash.Hash(k0, k1, Canonicalize(path))
}

// Fingerprint combines a directory's canonical form with a file name to
// produce a per-DIE source-file fingerprint. Passing a nil/empty dirCanon
// (the "fresh state" the file-name table uses for directory index 0, the
// compilation directory) fingerprints the name alone.
func Fingerprint(dirCanon []byte, name string) uint64 {
	buf := make([]byte, 0, len(dirCanon)+len(name))
	buf = append(buf, dirCanon...)
	buf = append(buf, name...)
	return siphash.Hash(k0, k1, buf)
}
