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

// Package dwalk walks the DIEs of one compilation unit using its compiled
// abbrev program, and inserts the ones worth finding into a name hash.
package dwalk

import (
	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/abbrev"
	"github.com/jetsetilly/dwarfidx/internal/cu"
	"github.com/jetsetilly/dwarfidx/internal/dwconst"
	"github.com/jetsetilly/dwarfidx/internal/linetab"
	"github.com/jetsetilly/dwarfidx/internal/namehash"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

// Sections bundles the byte slices a walk needs from one object file.
type Sections struct {
	Abbrev []byte
	Info   []byte
	Line   []byte
	Str    []byte
}

// die is the scratch result of running one DIE's compiled attribute
// program: whatever the opcode stream captured, plus the static fields
// (tag/hasChildren/declaration) baked in at compile time.
type die struct {
	tag         dwconst.Tag
	hasChildren bool
	declaration bool

	sibling    uint64
	hasSibling bool

	nameOff       int
	nameLen       int
	hasInlineName bool
	nameStrp      uint64
	hasStrpName   bool

	stmtList    uint64
	hasStmtList bool

	declFile uint64

	specification uint64
	hasSpec       bool
}

func dieFromAttrs(prog *abbrev.Program, a abbrev.Attrs) die {
	return die{
		tag:           prog.Tag,
		hasChildren:   prog.HasChildren,
		declaration:   prog.Declaration,
		sibling:       a.Sibling,
		hasSibling:    a.HasSibling,
		nameOff:       a.NameOff,
		nameLen:       a.NameLen,
		hasInlineName: a.HasName,
		nameStrp:      a.NameStrp,
		hasStrpName:   a.HasNameStrp,
		stmtList:      a.StmtList,
		hasStmtList:   a.HasStmtList,
		declFile:      a.DeclFile,
		specification: a.Specification,
		hasSpec:       a.HasSpecification,
	}
}

type walker struct {
	sec     Sections
	hash    *namehash.Table
	cuIndex uint32
	h       *cu.Header
	table   *abbrev.Table
	files   *linetab.Table
}

// Walk traverses one CU's DIEs and inserts indexed, named, non-declaration
// DIEs into hash. cuIndex is the caller's identifier for h, stored
// alongside each inserted entry so Find's results can be traced back to a
// compilation unit.
func Walk(h *cu.Header, sec Sections, hash *namehash.Table, cuIndex uint32) error {
	table, err := abbrev.Compile(sec.Abbrev, h.AbbrevOffset, h.AddressSize, h.OffsetSize())
	if err != nil {
		return err
	}
	w := &walker{sec: sec, hash: hash, cuIndex: cuIndex, h: h, table: table}
	return w.run()
}

func (w *walker) run() error {
	c := reader.NewAt(w.sec.Info, int(w.h.BodyStart))

	depth := 0
	// enumStack has one entry per currently-open depth, plus the root.
	// enumStack[depth] is set to an enumeration_type DIE's own pointer when
	// that DIE is seen at that depth, so that once its children are
	// descended into, enumStack[depth] (now the second-to-last entry) tells
	// an enumerator one level down which DIE pointer to redirect its
	// insertion to.
	enumStack := []uint64{0}

	for c.Pos() < int(w.h.End) {
		diePtr := uint64(c.Pos())
		code, err := c.ULEB128()
		if err != nil {
			return err
		}
		if code == 0 {
			if depth == 0 {
				return errors.Errorf(errors.DWARFFormat, "unbalanced DIE nesting in CU at offset %d", w.h.Offset)
			}
			depth--
			enumStack = enumStack[:len(enumStack)-1]
			continue
		}

		prog, ok := w.table.Lookup(code)
		if !ok {
			return errors.Errorf(errors.DWARFFormat, "abbrev code %d undefined in CU at offset %d", code, w.h.Offset)
		}
		attrs, err := prog.Exec(c)
		if err != nil {
			return err
		}
		d := dieFromAttrs(prog, attrs)

		switch {
		case depth == 0 && d.tag == dwconst.TagCompileUnit && d.hasStmtList:
			ft, err := linetab.Read(w.sec.Line, d.stmtList)
			if err != nil {
				return err
			}
			w.files = ft

		case depth == 1:
			if d.tag == dwconst.TagEnumerationType {
				enumStack[len(enumStack)-1] = diePtr
			}
			if err := w.maybeInsert(d, diePtr); err != nil {
				return err
			}

		case depth == 2 && d.tag == dwconst.TagEnumerator:
			if enclosing := enumStack[len(enumStack)-2]; enclosing != 0 {
				if err := w.maybeInsert(d, enclosing); err != nil {
					return err
				}
			}
		}

		if !d.hasChildren {
			continue
		}
		if d.hasSibling {
			target := w.h.Offset + d.sibling
			if target > w.h.BodyStart && target < w.h.End {
				if err := c.SeekTo(int(target)); err != nil {
					return err
				}
				continue
			}
			// an untrustworthy hint; fall back to descending instead of
			// risking a jump outside the CU.
		}
		depth++
		enumStack = append(enumStack, 0)
	}

	if depth != 0 {
		return errors.Errorf(errors.DWARFFormat, "CU at offset %d ended with unclosed DIE nesting", w.h.Offset)
	}
	return nil
}

// maybeInsert inserts d into the name hash under ptr (which, for
// enumerators, is the enclosing enum's DIE pointer rather than d's own).
func (w *walker) maybeInsert(d die, ptr uint64) error {
	if d.tag == 0 || d.declaration {
		return nil
	}

	name, hasName := w.dieName(d)
	declFile := d.declFile

	if d.hasSpec && (!hasName || declFile == 0) {
		if ref, ok := w.readReferenced(d.specification); ok {
			if !hasName {
				name, hasName = w.dieName(ref)
			}
			if declFile == 0 {
				declFile = ref.declFile
			}
		}
	}

	if !hasName {
		return nil
	}

	var fp uint64
	if w.files != nil {
		v, err := w.files.Lookup(declFile)
		if err != nil {
			return err
		}
		fp = v
	}

	return w.hash.Insert(name, uint8(d.tag), fp, w.cuIndex, ptr)
}

// readReferenced reads the DIE a DW_AT_specification attribute points at.
// The reference is resolved as a CU-relative offset (ref1/2/4/8/udata's
// normal meaning); ref_addr's absolute-offset meaning is only correctly
// resolved when it happens to coincide with that, since both forms share
// the same compiled opcode. A pointer outside this CU's body is reported
// as "referent unavailable" rather than read.
func (w *walker) readReferenced(specification uint64) (die, bool) {
	target := w.h.Offset + specification
	if target < w.h.BodyStart || target >= w.h.End {
		return die{}, false
	}
	c := reader.NewAt(w.sec.Info, int(target))
	code, err := c.ULEB128()
	if err != nil || code == 0 {
		return die{}, false
	}
	prog, ok := w.table.Lookup(code)
	if !ok {
		return die{}, false
	}
	attrs, err := prog.Exec(c)
	if err != nil {
		return die{}, false
	}
	return dieFromAttrs(prog, attrs), true
}

func (w *walker) dieName(d die) (string, bool) {
	if d.hasInlineName {
		end := d.nameOff + d.nameLen
		if end > len(w.sec.Info) {
			return "", false
		}
		return string(w.sec.Info[d.nameOff:end]), true
	}
	if d.hasStrpName {
		if d.nameStrp >= uint64(len(w.sec.Str)) {
			return "", false
		}
		end := d.nameStrp
		for end < uint64(len(w.sec.Str)) && w.sec.Str[end] != 0 {
			end++
		}
		return string(w.sec.Str[d.nameStrp:end]), true
	}
	return "", false
}
