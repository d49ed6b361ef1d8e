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

package elfobj

import (
	"encoding/binary"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/dwconst"
)

// RelaCount returns the number of relocation entries paired with section s,
// or 0 if it has no .rela companion.
func (f *File) RelaCount(s *Section) int {
	rela := f.RelaFor(s)
	if rela == nil {
		return 0
	}
	return len(rela.Data) / relaSize
}

// ApplyReloc applies the i'th relocation entry of s's .rela section. It is
// safe to call concurrently for different (s, i) pairs: each entry targets
// a disjoint byte range of s.Data (a malformed object with overlapping
// relocations is not something this package guards against).
func (f *File) ApplyReloc(s *Section, i int) error {
	rela := f.RelaFor(s)
	if rela == nil {
		return errors.Errorf(errors.NotFound, "section has no .rela companion")
	}
	off := i * relaSize
	if off+relaSize > len(rela.Data) {
		return errors.Errorf(errors.ELFFormat, "relocation index %d out of range", i)
	}
	entry := rela.Data[off : off+relaSize]

	offset := binary.LittleEndian.Uint64(entry[0:8])
	info := binary.LittleEndian.Uint64(entry[8:16])
	addend := int64(binary.LittleEndian.Uint64(entry[16:24]))

	typ := relaType(info)
	if typ == dwconst.R_X86_64_NONE {
		return nil
	}
	if typ != dwconst.R_X86_64_32 && typ != dwconst.R_X86_64_64 {
		return errors.Errorf(errors.Unsupported, "relocation type %d not supported", typ)
	}

	sym := relaSym(info)
	if sym >= f.NumSymbols() {
		return errors.Errorf(errors.ELFFormat, "relocation symbol index %d out of range", sym)
	}
	symValue, err := f.Symbol(sym)
	if err != nil {
		return err
	}
	value := uint64(int64(symValue) + addend)

	switch typ {
	case dwconst.R_X86_64_32:
		if offset+4 > uint64(len(s.Data)) {
			return errors.Errorf(errors.ELFFormat, "relocation offset %d out of bounds", offset)
		}
		binary.LittleEndian.PutUint32(s.Data[offset:offset+4], uint32(value))
	case dwconst.R_X86_64_64:
		if offset+8 > uint64(len(s.Data)) {
			return errors.Errorf(errors.ELFFormat, "relocation offset %d out of bounds", offset)
		}
		binary.LittleEndian.PutUint64(s.Data[offset:offset+8], value)
	}
	return nil
}

// DebugSections returns whichever of the four debug sections were
// discovered; RelaFor gives each one's .rela companion (nil if none). Used
// by the orchestrator to build its flattened relocation work list.
func (f *File) DebugSections() []*Section {
	var out []*Section
	for _, s := range []*Section{f.Abbrev, f.Info, f.Line, f.Str} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
