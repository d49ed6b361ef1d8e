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

// Package abbrev compiles a compilation unit's DWARF abbreviation table
// into a byte-code program, one per abbrev code, that the DIE walker runs
// instead of dispatching on (DW_AT, DW_FORM) pairs attribute by attribute.
// A DIE walk touches millions of attributes; per-attribute branching on
// their tag/form pair is the bottleneck this package removes.
//
// A compiled program is a flat byte stream. Opcodes 1..229 mean "skip this
// many bytes" - runs of attributes whose width is known at compile time and
// which nothing downstream needs are coalesced into as few skip opcodes as
// that range allows. Opcodes 230..255 are dedicated instructions, one per
// combination of wire shape and captured field, for the handful of
// attributes the indexer actually reads (names, sibling pointers,
// decl_file, specification, stmt_list) plus the variable-length forms
// (blocks, LEB128, inline strings) that can't be folded into a skip run
// because their width isn't known until the bytes are read. The stream
// ends with a 0 byte followed by one byte packing the DIE's tag (low 6
// bits), whether it has children (bit 6), and whether it is declaration-only
// (bit 7).
package abbrev

import (
	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/dwconst"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

const maxSkip = 229

const (
	opBlock1 = 230
	opBlock2 = 231
	opBlock4 = 232
	opExprloc = 233 // shared by DW_FORM_block and DW_FORM_exprloc: both are a ULEB128 length followed by that many bytes
	opLEB128 = 234  // skip one LEB128 value (sdata/udata/ref_udata, uncaptured)
	opString = 235  // skip one NUL-terminated string, uncaptured

	opSiblingRef1     = 236
	opSiblingRef2     = 237
	opSiblingRef4     = 238
	opSiblingRef8     = 239
	opSiblingRefUdata = 240

	opNameStrp4   = 241
	opNameStrp8   = 242
	opNameString  = 243

	opStmtListLineptr4 = 244
	opStmtListLineptr8 = 245

	opDeclFileData1    = 246
	opDeclFileData2    = 247
	opDeclFileData4    = 248
	opDeclFileData8    = 249
	opDeclFileDataUdata = 250

	opSpecificationRef1     = 251
	opSpecificationRef2     = 252
	opSpecificationRef4     = 253
	opSpecificationRef8     = 254
	opSpecificationRefUdata = 255
)

const (
	tagMask            = 0x3f
	flagHasChildren    = 0x40
	flagDeclaration    = 0x80
)

// Program is the compiled byte-code for one abbreviation code.
type Program struct {
	Tag         dwconst.Tag // 0 if this DIE's tag is not one the index cares about
	HasChildren bool
	Declaration bool
	Code        []byte
}

func (p *Program) tagByte() byte {
	b := byte(p.Tag) & tagMask
	if p.HasChildren {
		b |= flagHasChildren
	}
	if p.Declaration {
		b |= flagDeclaration
	}
	return b
}

// Table maps an abbreviation code (1-based, as encoded in .debug_info) to
// its compiled Program.
type Table struct {
	Programs []Program
}

// Lookup returns the program for abbrev code, or ok=false if code is out of
// range (0 is never a valid code - it is the DWARF end-of-siblings marker).
func (t *Table) Lookup(code uint64) (*Program, bool) {
	if code == 0 || code > uint64(len(t.Programs)) {
		return nil, false
	}
	return &t.Programs[code-1], true
}

// Compile reads one CU's abbreviation table out of data (a .debug_abbrev
// section) starting at offset, and compiles it. addrSize and offsetSize
// are the owning CU's address size and DWARF32/64 offset width - both are
// needed to size fixed-width forms correctly.
func Compile(data []byte, offset uint64, addrSize, offsetSize int) (*Table, error) {
	c := reader.NewAt(data, int(offset))

	var table Table
	for {
		code, err := c.ULEB128()
		if err != nil {
			return nil, err
		}
		if code == 0 {
			break
		}
		if code != uint64(len(table.Programs)+1) {
			return nil, errors.Errorf(errors.Unsupported, "non-sequential abbrev code %d (expected %d)", code, len(table.Programs)+1)
		}

		rawTag, err := c.ULEB128()
		if err != nil {
			return nil, err
		}
		hasChildren, err := c.U8()
		if err != nil {
			return nil, err
		}

		tag := dwconst.Tag(rawTag)
		indexed := dwconst.IsIndexed(tag)
		prog := Program{HasChildren: hasChildren != 0}
		if indexed {
			prog.Tag = tag
		}

		var pendingSkip int
		flush := func() {
			for pendingSkip > 0 {
				n := pendingSkip
				if n > maxSkip {
					n = maxSkip
				}
				prog.Code = append(prog.Code, byte(n))
				pendingSkip -= n
			}
		}

		for {
			attrRaw, err := c.ULEB128()
			if err != nil {
				return nil, err
			}
			formRaw, err := c.ULEB128()
			if err != nil {
				return nil, err
			}
			if attrRaw == 0 && formRaw == 0 {
				break
			}
			attr := dwconst.Attr(attrRaw)
			form := dwconst.Form(formRaw)

			if attr == dwconst.AttrDeclaration && form == dwconst.FormFlagPresent {
				prog.Declaration = true
				continue
			}
			if attr == dwconst.AttrSibling && tag != dwconst.TagEnumerationType {
				if op, ok := siblingOpcode(form); ok {
					flush()
					prog.Code = append(prog.Code, op)
					continue
				}
			}
			if attr == dwconst.AttrName && indexed && tag != dwconst.TagCompileUnit {
				if op, ok := nameOpcode(form, offsetSize); ok {
					flush()
					prog.Code = append(prog.Code, op)
					continue
				}
			}
			if attr == dwconst.AttrStmtList && tag == dwconst.TagCompileUnit {
				flush()
				if offsetSize == 4 {
					prog.Code = append(prog.Code, opStmtListLineptr4)
				} else {
					prog.Code = append(prog.Code, opStmtListLineptr8)
				}
				continue
			}
			if attr == dwconst.AttrDeclFile && indexed && tag != dwconst.TagCompileUnit {
				if op, ok := declFileOpcode(form); ok {
					flush()
					prog.Code = append(prog.Code, op)
					continue
				}
			}
			if attr == dwconst.AttrSpecification && indexed && tag != dwconst.TagCompileUnit {
				if op, ok := specificationOpcode(form, offsetSize); ok {
					flush()
					prog.Code = append(prog.Code, op)
					continue
				}
			}

			if form == dwconst.FormIndirect {
				return nil, errors.Errorf(errors.Unsupported, "DW_FORM_indirect is not supported")
			}
			if width, fixed := formWidth(form, addrSize, offsetSize); fixed {
				pendingSkip += width
				continue
			}
			if op, ok := variableSkipOpcode(form); ok {
				flush()
				prog.Code = append(prog.Code, op)
				continue
			}
			return nil, errors.Errorf(errors.Unsupported, "unsupported form %#x for attribute %#x", formRaw, attrRaw)
		}

		flush()
		prog.Code = append(prog.Code, 0, prog.tagByte())
		table.Programs = append(table.Programs, prog)
	}

	return &table, nil
}

// formWidth returns the fixed byte width of form, if it has one.
func formWidth(form dwconst.Form, addrSize, offsetSize int) (width int, fixed bool) {
	switch form {
	case dwconst.FormAddr:
		return addrSize, true
	case dwconst.FormData1, dwconst.FormRef1, dwconst.FormFlag:
		return 1, true
	case dwconst.FormData2, dwconst.FormRef2:
		return 2, true
	case dwconst.FormData4, dwconst.FormRef4:
		return 4, true
	case dwconst.FormData8, dwconst.FormRef8, dwconst.FormRefSig8:
		return 8, true
	case dwconst.FormRefAddr, dwconst.FormSecOffset, dwconst.FormStrp:
		return offsetSize, true
	case dwconst.FormFlagPresent:
		return 0, true
	}
	return 0, false
}

// variableSkipOpcode returns the uncaptured skip opcode for a
// variable-width form, if it has one.
func variableSkipOpcode(form dwconst.Form) (byte, bool) {
	switch form {
	case dwconst.FormBlock1:
		return opBlock1, true
	case dwconst.FormBlock2:
		return opBlock2, true
	case dwconst.FormBlock4:
		return opBlock4, true
	case dwconst.FormBlock, dwconst.FormExprloc:
		return opExprloc, true
	case dwconst.FormSdata, dwconst.FormUdata, dwconst.FormRefUdata:
		return opLEB128, true
	case dwconst.FormString:
		return opString, true
	}
	return 0, false
}

func siblingOpcode(form dwconst.Form) (byte, bool) {
	switch form {
	case dwconst.FormRef1:
		return opSiblingRef1, true
	case dwconst.FormRef2:
		return opSiblingRef2, true
	case dwconst.FormRef4:
		return opSiblingRef4, true
	case dwconst.FormRef8:
		return opSiblingRef8, true
	case dwconst.FormRefUdata:
		return opSiblingRefUdata, true
	}
	return 0, false
}

func nameOpcode(form dwconst.Form, offsetSize int) (byte, bool) {
	switch form {
	case dwconst.FormStrp:
		if offsetSize == 4 {
			return opNameStrp4, true
		}
		return opNameStrp8, true
	case dwconst.FormString:
		return opNameString, true
	}
	return 0, false
}

func declFileOpcode(form dwconst.Form) (byte, bool) {
	switch form {
	case dwconst.FormData1, dwconst.FormRef1:
		return opDeclFileData1, true
	case dwconst.FormData2:
		return opDeclFileData2, true
	case dwconst.FormData4:
		return opDeclFileData4, true
	case dwconst.FormData8:
		return opDeclFileData8, true
	case dwconst.FormUdata:
		return opDeclFileDataUdata, true
	}
	return 0, false
}

func specificationOpcode(form dwconst.Form, offsetSize int) (byte, bool) {
	switch form {
	case dwconst.FormRef1:
		return opSpecificationRef1, true
	case dwconst.FormRef2:
		return opSpecificationRef2, true
	case dwconst.FormRef4:
		return opSpecificationRef4, true
	case dwconst.FormRef8:
		return opSpecificationRef8, true
	case dwconst.FormRefUdata:
		return opSpecificationRefUdata, true
	case dwconst.FormRefAddr:
		if offsetSize == 4 {
			return opSpecificationRef4, true
		}
		return opSpecificationRef8, true
	}
	return 0, false
}
