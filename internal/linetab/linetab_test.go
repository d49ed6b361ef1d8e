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

package linetab_test

import (
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/linetab"
	"github.com/jetsetilly/dwarfidx/internal/pathhash"
)

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func cstr(s string) []byte { return append([]byte(s), 0) }

// buildLineProgram assembles a DWARF32 version-4 line-program header with
// the given directories and (name, dirIndex) file entries. No standard
// opcodes are emitted - this package never reads the statement program.
func buildLineProgram(dirs []string, files []struct {
	name string
	dir  uint64
}) []byte {
	var body []byte
	body = append(body, 1)    // minimum_instruction_length
	body = append(body, 1)    // maximum_operations_per_instruction (version 4)
	body = append(body, 1)    // default_is_stmt
	body = append(body, 0xfb) // line_base = -5
	body = append(body, 14)   // line_range
	body = append(body, 1)    // opcode_base = 1 (no standard opcodes)

	for _, d := range dirs {
		body = append(body, cstr(d)...)
	}
	body = append(body, 0) // end of directory table

	for _, f := range files {
		body = append(body, cstr(f.name)...)
		body = append(body, uleb(f.dir)...)
		body = append(body, uleb(0)...) // mtime
		body = append(body, uleb(0)...) // size
	}
	body = append(body, 0) // end of file table

	headerLength := uint32(len(body))
	var prologue []byte
	verBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(verBuf, 4)
	prologue = append(prologue, verBuf...)
	hlBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(hlBuf, headerLength)
	prologue = append(prologue, hlBuf...)
	prologue = append(prologue, body...)

	totalLength := uint32(len(prologue))
	var out []byte
	tlBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(tlBuf, totalLength)
	out = append(out, tlBuf...)
	out = append(out, prologue...)
	return out
}

func TestReadFileTable(t *testing.T) {
	data := buildLineProgram(
		[]string{"/src/include"},
		[]struct {
			name string
			dir  uint64
		}{
			{"main.c", 0},
			{"header.h", 1},
		},
	)
	table, err := linetab.Read(data, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(table.Fingerprints) != 3 {
		t.Fatalf("len(Fingerprints) = %d, want 3 (index 0 unused + 2 entries)", len(table.Fingerprints))
	}

	wantMainC := pathhash.Fingerprint(nil, "main.c")
	gotMainC, err := table.Lookup(1)
	if err != nil || gotMainC != wantMainC {
		t.Errorf("Lookup(1) = (%#x, %v), want (%#x, nil)", gotMainC, err, wantMainC)
	}

	wantHeader := pathhash.Fingerprint(pathhash.Canonicalize("/src/include"), "header.h")
	gotHeader, err := table.Lookup(2)
	if err != nil || gotHeader != wantHeader {
		t.Errorf("Lookup(2) = (%#x, %v), want (%#x, nil)", gotHeader, err, wantHeader)
	}
}

func TestLookupZeroIsNullFingerprint(t *testing.T) {
	table := &linetab.Table{Fingerprints: []uint64{0, 123}}
	fp, err := table.Lookup(0)
	if err != nil || fp != 0 {
		t.Errorf("Lookup(0) = (%d, %v), want (0, nil)", fp, err)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	table := &linetab.Table{Fingerprints: []uint64{0, 123}}
	if _, err := table.Lookup(5); !errors.Is(err, errors.DWARFFormat) {
		t.Fatalf("Lookup(5) error = %v, want DWARFFormat", err)
	}
}

func TestDirectoryIndexOutOfRange(t *testing.T) {
	data := buildLineProgram(
		nil,
		[]struct {
			name string
			dir  uint64
		}{{"orphan.c", 7}},
	)
	if _, err := linetab.Read(data, 0); !errors.Is(err, errors.DWARFFormat) {
		t.Fatalf("Read() with out-of-range directory index error = %v, want DWARFFormat", err)
	}
}
