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

// Package elfobj opens one ELF64 little-endian object file as a private
// memory mapping and locates the four debug sections, the symbol table, and
// each debug section's .rela companion. It parses the ELF and section
// header tables by hand rather than through debug/elf: relocation needs the
// raw byte offsets of each section inside the mapping so it can write
// through them in place, something debug/elf's io.ReaderAt-based model does
// not expose.
package elfobj

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/dwconst"
)

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
	relaSize = 24
)

// ELF section types this package cares about.
const (
	shtNull    = 0
	shtProgbits = 1
	shtSymtab  = 2
	shtRela    = 4
)

const shnXindex = 0xffff

// Section is a debug section's raw bytes within the mapping, plus the
// source section-header index a .rela section's sh_info refers back to.
type Section struct {
	Data    []byte
	shIndex uint32
}

// File is one mmap'd ELF object. The mapping is opened MAP_PRIVATE: writes
// made by relocation are visible to this process only and never reach the
// backing file.
type File struct {
	Path string

	mapping mmap.MMap

	Abbrev, Info, Line, Str *Section
	Symtab                  []byte

	relaAbbrev, relaInfo, relaLine, relaStr *Section
}

// Open mmaps path and discovers its debug sections. If the file has no
// usable debug information (missing debug sections or symtab) Open returns
// (nil, nil, false): this is not an error, callers should simply skip it.
func Open(path string) (f *File, err error, ok bool) {
	fh, oerr := os.Open(path)
	if oerr != nil {
		return nil, errors.Errorf(errors.OS, "open %s: %v", path, oerr), false
	}
	defer fh.Close()

	// mmap.COPY maps MAP_PRIVATE: the region is writable (relocation writes
	// through it) but those writes never reach the backing file.
	m, merr := mmap.Map(fh, mmap.COPY, 0)
	if merr != nil {
		return nil, errors.Errorf(errors.OS, "mmap %s: %v", path, merr), false
	}

	f = &File{Path: path, mapping: m}
	if err := f.discover([]byte(m)); err != nil {
		m.Unmap()
		return nil, err, false
	}
	if f.Abbrev == nil || f.Info == nil || f.Line == nil || f.Str == nil || f.Symtab == nil {
		m.Unmap()
		return nil, nil, false
	}
	return f, nil, true
}

// Close unmaps the file's memory region.
func (f *File) Close() error {
	return f.mapping.Unmap()
}

func (f *File) discover(data []byte) error {
	if len(data) < ehdrSize {
		return errors.Errorf(errors.EOF, "%s: truncated ELF header", f.Path)
	}
	if data[0] != 0x7f || data[1] != 'E' || data[2] != 'L' || data[3] != 'F' {
		return errors.Errorf(errors.ELFFormat, "%s: bad ELF magic", f.Path)
	}
	const (
		eiClass = 4
		eiData  = 5
	)
	if data[eiClass] != 2 { // ELFCLASS64
		return errors.Errorf(errors.Unsupported, "%s: 32-bit ELF not supported", f.Path)
	}
	if data[eiData] != 1 { // ELFDATA2LSB
		return errors.Errorf(errors.Unsupported, "%s: big-endian ELF not supported", f.Path)
	}

	shoff := binary.LittleEndian.Uint64(data[40:48])
	shentsize := binary.LittleEndian.Uint16(data[58:60])
	shnum := binary.LittleEndian.Uint16(data[60:62])
	shstrndx := binary.LittleEndian.Uint16(data[62:64])

	if shnum == 0 {
		return errors.Errorf(errors.ELFFormat, "%s: no section headers", f.Path)
	}
	if int(shentsize) < shdrSize {
		return errors.Errorf(errors.Unsupported, "%s: unexpected section header size %d", f.Path, shentsize)
	}
	if shoff+uint64(shnum)*uint64(shentsize) > uint64(len(data)) {
		return errors.Errorf(errors.ELFFormat, "%s: section header table out of bounds", f.Path)
	}

	shdr := func(i uint16) []byte {
		off := shoff + uint64(i)*uint64(shentsize)
		return data[off : off+shdrSize]
	}

	strndx := uint32(shstrndx)
	if shstrndx == shnXindex {
		strndx = binary.LittleEndian.Uint32(shdr(0)[40:44]) // sh_link of section 0
	}
	if strndx >= uint32(shnum) {
		return errors.Errorf(errors.ELFFormat, "%s: section string table index out of range", f.Path)
	}
	strtab := sectionBytes(data, shdr(uint16(strndx)))

	name := func(nameOff uint32) string {
		if int(nameOff) >= len(strtab) {
			return ""
		}
		end := nameOff
		for end < uint32(len(strtab)) && strtab[end] != 0 {
			end++
		}
		return string(strtab[nameOff:end])
	}

	var symtabIdx uint32
	haveSymtab := false

	for i := uint16(0); i < shnum; i++ {
		h := shdr(i)
		typ := binary.LittleEndian.Uint32(h[4:8])
		switch typ {
		case shtProgbits:
			switch name(binary.LittleEndian.Uint32(h[0:4])) {
			case ".debug_abbrev":
				f.Abbrev = &Section{Data: sectionBytes(data, h), shIndex: uint32(i)}
			case ".debug_info":
				f.Info = &Section{Data: sectionBytes(data, h), shIndex: uint32(i)}
			case ".debug_line":
				f.Line = &Section{Data: sectionBytes(data, h), shIndex: uint32(i)}
			case ".debug_str":
				f.Str = &Section{Data: sectionBytes(data, h), shIndex: uint32(i)}
			}
		case shtSymtab:
			f.Symtab = sectionBytes(data, h)
			symtabIdx = uint32(i)
			haveSymtab = true
		}
	}

	if !haveSymtab {
		return nil
	}

	for i := uint16(0); i < shnum; i++ {
		h := shdr(i)
		if binary.LittleEndian.Uint32(h[4:8]) != shtRela {
			continue
		}
		shLink := binary.LittleEndian.Uint32(h[40:44])
		shInfo := binary.LittleEndian.Uint32(h[44:48])
		if shLink != symtabIdx {
			continue
		}
		sec := &Section{Data: sectionBytes(data, h), shIndex: uint32(i)}
		switch shInfo {
		case f.sectionIndex(f.Abbrev):
			f.relaAbbrev = sec
		case f.sectionIndex(f.Info):
			f.relaInfo = sec
		case f.sectionIndex(f.Line):
			f.relaLine = sec
		case f.sectionIndex(f.Str):
			f.relaStr = sec
		}
	}

	return nil
}

func (f *File) sectionIndex(s *Section) uint32 {
	if s == nil {
		return ^uint32(0)
	}
	return s.shIndex
}

func sectionBytes(data []byte, hdr []byte) []byte {
	off := binary.LittleEndian.Uint64(hdr[24:32])
	size := binary.LittleEndian.Uint64(hdr[32:40])
	if off+size > uint64(len(data)) {
		return nil
	}
	return data[off : off+size]
}

// RelaFor returns the .rela section paired with one of the four debug
// sections, or nil if none was discovered - relocations are optional.
func (f *File) RelaFor(s *Section) *Section {
	switch s {
	case f.Abbrev:
		return f.relaAbbrev
	case f.Info:
		return f.relaInfo
	case f.Line:
		return f.relaLine
	case f.Str:
		return f.relaStr
	}
	return nil
}

// Symbol returns the value of symtab entry idx.
func (f *File) Symbol(idx uint32) (value uint64, err error) {
	off := uint64(idx) * symSize
	if off+symSize > uint64(len(f.Symtab)) {
		return 0, errors.Errorf(errors.ELFFormat, "symbol index %d out of range", idx)
	}
	return binary.LittleEndian.Uint64(f.Symtab[off+8 : off+16]), nil
}

// NumSymbols reports the number of entries in the symbol table.
func (f *File) NumSymbols() uint32 {
	return uint32(len(f.Symtab) / symSize)
}

// relaType reports the R_X86_64_* relocation type for a given combined
// r_info field.
func relaType(info uint64) dwconst.RelocType {
	return dwconst.RelocType(info & 0xffffffff)
}

func relaSym(info uint64) uint32 {
	return uint32(info >> 32)
}
