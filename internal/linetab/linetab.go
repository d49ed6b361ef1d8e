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

// Package linetab reads a DWARF line-program header far enough to build the
// per-CU file-name table: it does not execute the statement program, only
// the prologue (directories and file entries) the indexer needs to turn a
// DW_AT_decl_file index into a source-file fingerprint.
package linetab

import (
	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/pathhash"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

const dwarf64Marker = 0xffffffff

// Table holds one fingerprint per file-table entry. Index 0 is unused -
// DWARF file indices are 1-based.
type Table struct {
	Fingerprints []uint64
}

// Lookup returns the fingerprint for a decl_file index. index 0 means "no
// file" and returns (0, nil): a zero fingerprint and no error. An index beyond the
// table is a DWARF_FORMAT violation.
func (t *Table) Lookup(index uint64) (fingerprint uint64, err error) {
	if index == 0 {
		return 0, nil
	}
	if index >= uint64(len(t.Fingerprints)) {
		return 0, errors.Errorf(errors.DWARFFormat, "decl_file index %d beyond file table of %d entries", index, len(t.Fingerprints)-1)
	}
	return t.Fingerprints[index], nil
}

// Read parses the line-program prologue at offset within a .debug_line
// section and builds the file-name table.
func Read(line []byte, offset uint64) (*Table, error) {
	if offset >= uint64(len(line)) {
		return nil, errors.Errorf(errors.DWARFFormat, "stmt_list offset %d beyond .debug_line", offset)
	}
	c := reader.NewAt(line, int(offset))

	initialLength, err := c.U32()
	if err != nil {
		return nil, err
	}
	offsetSize := 4
	if initialLength == dwarf64Marker {
		offsetSize = 8
		if _, err := c.U64(); err != nil { // unit length itself, unused here
			return nil, err
		}
	}

	version, err := c.U16()
	if err != nil {
		return nil, err
	}
	if version < 2 || version > 4 {
		return nil, errors.Errorf(errors.Unsupported, "line table version %d not supported (only 2-4)", version)
	}

	// header_length locates the statement program, which this package never
	// runs - only the prologue (directories, file table) is read.
	if _, err := c.UN(offsetSize); err != nil {
		return nil, err
	}

	if _, err := c.U8(); err != nil { // minimum_instruction_length
		return nil, err
	}
	if version >= 4 {
		if _, err := c.U8(); err != nil { // maximum_operations_per_instruction
			return nil, err
		}
	}
	if _, err := c.U8(); err != nil { // default_is_stmt
		return nil, err
	}
	if _, err := c.U8(); err != nil { // line_base
		return nil, err
	}
	if _, err := c.U8(); err != nil { // line_range
		return nil, err
	}

	opcodeBase, err := c.U8()
	if err != nil {
		return nil, err
	}
	if opcodeBase > 0 {
		if err := c.Skip(int(opcodeBase) - 1); err != nil {
			return nil, err
		}
	}

	// directories[0] is the fresh/empty canonical form standing in for the
	// compilation directory; directories read off the wire start at index 1.
	dirCanon := [][]byte{nil}
	for {
		start, length, err := c.String()
		if err != nil {
			return nil, err
		}
		if length == 0 {
			break
		}
		name := string(c.Buffer()[start : start+length])
		dirCanon = append(dirCanon, pathhash.Canonicalize(name))
	}

	table := &Table{Fingerprints: make([]uint64, 1)}
	for {
		start, length, err := c.String()
		if err != nil {
			return nil, err
		}
		if length == 0 {
			break
		}
		name := string(c.Buffer()[start : start+length])

		dirIndex, err := c.ULEB128()
		if err != nil {
			return nil, err
		}
		if _, err := c.ULEB128(); err != nil { // mtime
			return nil, err
		}
		if _, err := c.ULEB128(); err != nil { // size
			return nil, err
		}

		if dirIndex >= uint64(len(dirCanon)) {
			return nil, errors.Errorf(errors.DWARFFormat, "file entry directory index %d beyond %d directories", dirIndex, len(dirCanon)-1)
		}
		fp := pathhash.Fingerprint(dirCanon[dirIndex], name)
		table.Fingerprints = append(table.Fingerprints, fp)
	}

	return table, nil
}
