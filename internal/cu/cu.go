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

// Package cu reads DWARF2-4 compilation unit headers out of a .debug_info
// section and enumerates them.
package cu

import (
	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

const dwarf64Marker = 0xffffffff

// Header describes one compilation unit's header fields, plus the byte
// range of its body within .debug_info.
type Header struct {
	Offset       uint64 // offset of the CU header itself (start of unit_length)
	Is64Bit      bool
	Version      uint16
	AbbrevOffset uint64
	AddressSize  int
	BodyStart    uint64 // offset of the first DIE, just past the header
	End          uint64 // offset one past the end of this CU (start of the next one, if any)
}

// OffsetSize returns 4 for DWARF32, 8 for DWARF64 - the width of every
// *_offset-shaped form (strp, sec_offset, ref_addr, ...) in this CU.
func (h *Header) OffsetSize() int {
	if h.Is64Bit {
		return 8
	}
	return 4
}

// ReadHeader parses the CU header at offset within info (a .debug_info
// section's bytes).
func ReadHeader(info []byte, offset uint64) (*Header, error) {
	c := reader.NewAt(info, int(offset))

	initialLength, err := c.U32()
	if err != nil {
		return nil, err
	}

	h := &Header{Offset: offset}
	var unitLength uint64
	if initialLength == dwarf64Marker {
		h.Is64Bit = true
		unitLength, err = c.U64()
		if err != nil {
			return nil, err
		}
	} else {
		if initialLength >= dwarf64Marker-8 {
			return nil, errors.Errorf(errors.DWARFFormat, "reserved initial-length value %#x at offset %d", initialLength, offset)
		}
		unitLength = uint64(initialLength)
	}

	version, err := c.U16()
	if err != nil {
		return nil, err
	}
	if version < 2 || version > 4 {
		return nil, errors.Errorf(errors.Unsupported, "DWARF version %d not supported (only 2-4)", version)
	}
	h.Version = version

	abbrevOffset, err := c.UN(h.OffsetSize())
	if err != nil {
		return nil, err
	}
	h.AbbrevOffset = abbrevOffset

	addrSize, err := c.U8()
	if err != nil {
		return nil, err
	}
	h.AddressSize = int(addrSize)

	h.BodyStart = uint64(c.Pos())

	// The initial-length field is 4 bytes for DWARF32, or 12 for DWARF64
	// (the 0xffffffff marker plus the 8-byte actual length) - and unit_length
	// is defined to exclude that field's own size.
	initialLengthBytes := uint64(4)
	if h.Is64Bit {
		initialLengthBytes = 12
	}
	h.End = offset + initialLengthBytes + unitLength

	if h.End > uint64(len(info)) {
		return nil, errors.Errorf(errors.DWARFFormat, "CU at offset %d extends past end of .debug_info", offset)
	}

	return h, nil
}

// Enumerate walks every CU header in info sequentially, calling visit for
// each. It stops at the first error, either from header parsing or from
// visit itself.
func Enumerate(info []byte, visit func(*Header) error) error {
	offset := uint64(0)
	for offset < uint64(len(info)) {
		h, err := ReadHeader(info, offset)
		if err != nil {
			return err
		}
		if err := visit(h); err != nil {
			return err
		}
		offset = h.End
	}
	return nil
}
