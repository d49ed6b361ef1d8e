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

package leb128

// ULEB128 decoding algorithm taken from page 218 of "DWARF4 Standard", figure 46
//
// returns decoded value and the number of bytes consumed from the encoded array
func DecodeULEB128(encoded []uint8) (uint64, int) {
	var result uint64
	var shift uint64

	var n int
	for _, v := range encoded {
		n++
		result |= uint64(v&0x7f) << shift
		if v&0x80 == 0x00 {
			break
		}
		shift += 7
	}

	return result, n
}

// LEB128 decoding algorithm taken from page 218 of "DWARF4 Standard", figure 47
//
// returns decoded value and the number of bytes consumed from the encoded array
func DecodeSLEB128(encoded []uint8) (int64, int) {
	const size = 64

	var result int64
	var shift uint64

	var v uint8
	var n int
	for _, v = range encoded {
		n++
		result |= int64((int64(v) & 0x7f) << shift)
		shift += 7
		if v&0x80 == 0x00 {
			break
		}
	}

	// sign extend last byte from the encoded slice
	if shift < size && v&0x40 > 0 {
		result |= -(1 << shift)
	}

	return int64(result), n
}

// Overflowed reports whether shift/7 bytes of continuation-bit-set input
// have already pushed past 64 bits of payload, and whether the next
// continuation byte's low 7 bits still carry any of the bits that would be
// lost. It is used by readers that must fail closed on a LEB128 value too
// large for a uint64/int64 (DWARF4 Standard places no upper limit on the
// encoding's length) rather than silently truncating as the functions
// above do.
func Overflowed(shift uint, b uint8) bool {
	if shift >= 64 {
		return b&0x7f != 0
	}
	avail := 64 - shift
	if avail >= 7 {
		return false
	}
	return uint64(b&0x7f)>>avail != 0
}
