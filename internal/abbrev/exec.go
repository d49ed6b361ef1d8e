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

package abbrev

import (
	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

// Attrs holds the attribute values a Program captured while running over
// one DIE's attribute bytes. It carries no DWARF semantics (null decl_file,
// out-of-range specification, ...) - that interpretation belongs to the
// caller walking the DIE tree.
type Attrs struct {
	Sibling    uint64
	HasSibling bool

	NameStrp    uint64
	HasNameStrp bool

	NameOff    int
	NameLen    int
	HasName    bool

	StmtList    uint64
	HasStmtList bool

	DeclFile    uint64
	HasDeclFile bool

	Specification    uint64
	HasSpecification bool
}

// Exec runs the program's byte-code over c's current position, advancing c
// past the DIE's attribute bytes and returning whatever was captured.
func (p *Program) Exec(c *reader.Cursor) (Attrs, error) {
	var a Attrs
	code := p.Code
	i := 0
	for i < len(code) {
		op := code[i]
		i++

		switch {
		case op >= 1 && op <= maxSkip:
			if err := c.Skip(int(op)); err != nil {
				return a, err
			}
		case op == 0:
			return a, nil
		case op == opBlock1:
			n, err := c.U8()
			if err != nil {
				return a, err
			}
			if err := c.Skip(int(n)); err != nil {
				return a, err
			}
		case op == opBlock2:
			n, err := c.U16()
			if err != nil {
				return a, err
			}
			if err := c.Skip(int(n)); err != nil {
				return a, err
			}
		case op == opBlock4:
			n, err := c.U32()
			if err != nil {
				return a, err
			}
			if err := c.Skip(int(n)); err != nil {
				return a, err
			}
		case op == opExprloc:
			n, err := c.ULEB128()
			if err != nil {
				return a, err
			}
			if err := c.Skip(int(n)); err != nil {
				return a, err
			}
		case op == opLEB128:
			if err := c.SkipULEB128(); err != nil {
				return a, err
			}
		case op == opString:
			if err := c.SkipCString(); err != nil {
				return a, err
			}
		case op == opSiblingRef1:
			v, err := c.U8()
			if err != nil {
				return a, err
			}
			a.Sibling, a.HasSibling = uint64(v), true
		case op == opSiblingRef2:
			v, err := c.U16()
			if err != nil {
				return a, err
			}
			a.Sibling, a.HasSibling = uint64(v), true
		case op == opSiblingRef4:
			v, err := c.U32()
			if err != nil {
				return a, err
			}
			a.Sibling, a.HasSibling = uint64(v), true
		case op == opSiblingRef8:
			v, err := c.U64()
			if err != nil {
				return a, err
			}
			a.Sibling, a.HasSibling = v, true
		case op == opSiblingRefUdata:
			v, err := c.ULEB128()
			if err != nil {
				return a, err
			}
			a.Sibling, a.HasSibling = v, true
		case op == opNameStrp4:
			v, err := c.U32()
			if err != nil {
				return a, err
			}
			a.NameStrp, a.HasNameStrp = uint64(v), true
		case op == opNameStrp8:
			v, err := c.U64()
			if err != nil {
				return a, err
			}
			a.NameStrp, a.HasNameStrp = v, true
		case op == opNameString:
			start, length, err := c.String()
			if err != nil {
				return a, err
			}
			a.NameOff, a.NameLen, a.HasName = start, length, true
		case op == opStmtListLineptr4:
			v, err := c.U32()
			if err != nil {
				return a, err
			}
			a.StmtList, a.HasStmtList = uint64(v), true
		case op == opStmtListLineptr8:
			v, err := c.U64()
			if err != nil {
				return a, err
			}
			a.StmtList, a.HasStmtList = v, true
		case op == opDeclFileData1:
			v, err := c.U8()
			if err != nil {
				return a, err
			}
			a.DeclFile, a.HasDeclFile = uint64(v), true
		case op == opDeclFileData2:
			v, err := c.U16()
			if err != nil {
				return a, err
			}
			a.DeclFile, a.HasDeclFile = uint64(v), true
		case op == opDeclFileData4:
			v, err := c.U32()
			if err != nil {
				return a, err
			}
			a.DeclFile, a.HasDeclFile = uint64(v), true
		case op == opDeclFileData8:
			v, err := c.U64()
			if err != nil {
				return a, err
			}
			a.DeclFile, a.HasDeclFile = v, true
		case op == opDeclFileDataUdata:
			v, err := c.ULEB128()
			if err != nil {
				return a, err
			}
			a.DeclFile, a.HasDeclFile = v, true
		case op == opSpecificationRef1:
			v, err := c.U8()
			if err != nil {
				return a, err
			}
			a.Specification, a.HasSpecification = uint64(v), true
		case op == opSpecificationRef2:
			v, err := c.U16()
			if err != nil {
				return a, err
			}
			a.Specification, a.HasSpecification = uint64(v), true
		case op == opSpecificationRef4:
			v, err := c.U32()
			if err != nil {
				return a, err
			}
			a.Specification, a.HasSpecification = uint64(v), true
		case op == opSpecificationRef8:
			v, err := c.U64()
			if err != nil {
				return a, err
			}
			a.Specification, a.HasSpecification = v, true
		case op == opSpecificationRefUdata:
			v, err := c.ULEB128()
			if err != nil {
				return a, err
			}
			a.Specification, a.HasSpecification = v, true
		default:
			return a, errors.Errorf(errors.DWARFFormat, "unrecognised compiled opcode %d", op)
		}
	}
	return a, errors.Errorf(errors.DWARFFormat, "abbrev program ended without a terminator")
}
