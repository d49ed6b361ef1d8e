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

// Package reader implements bounds-checked reads of fixed-width integers,
// NUL-terminated strings, and LEB128 values over a byte slice. Every read
// either succeeds with the requested bytes available, or fails with an
// errors.EOF (errors.Overflow for a too-large LEB128 value). Little-endian
// encoding is assumed throughout - the caller is responsible for having
// validated that upstream (ELF section discovery rejects anything else).
package reader

import (
	"bytes"
	"encoding/binary"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/leb128"
)

// Cursor reads from a fixed underlying byte slice, advancing its position
// as values are consumed. It never copies the slice; values with a notion
// of "content" (String) return offsets into it rather than new allocations.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a Cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewAt returns a Cursor over buf positioned at pos.
func NewAt(buf []byte, pos int) *Cursor {
	return &Cursor{buf: buf, pos: pos}
}

// Pos returns the cursor's current offset into its buffer.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Buffer returns the cursor's underlying buffer.
func (c *Cursor) Buffer() []byte { return c.buf }

// SeekTo repositions the cursor. pos must be within [0, len(buffer)].
func (c *Cursor) SeekTo(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return errors.Errorf(errors.EOF, "seek to %d out of bounds (buffer length %d)", pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

func (c *Cursor) need(n int) error {
	if c.Remaining() < n {
		return errors.Errorf(errors.EOF, "need %d bytes at offset %d, have %d", n, c.pos, c.Remaining())
	}
	return nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// U8 reads an unsigned 8-bit integer.
func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// U16 reads a little-endian unsigned 16-bit integer.
func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// U32 reads a little-endian unsigned 32-bit integer.
func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// U64 reads a little-endian unsigned 64-bit integer.
func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// UN reads a little-endian unsigned integer of the given byte width (1, 2,
// 4, or 8). It exists so callers that compute a form's width at runtime (1
// for a byte-sized DW_FORM, 8 for a DWARF64 offset, ...) don't need a
// switch of their own.
func (c *Cursor) UN(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := c.U8()
		return uint64(v), err
	case 2:
		v, err := c.U16()
		return uint64(v), err
	case 4:
		v, err := c.U32()
		return uint64(v), err
	case 8:
		return c.U64()
	default:
		return 0, errors.Errorf(errors.Unsupported, "unsupported integer width %d", width)
	}
}

// String reads a NUL-terminated string. It returns the offset and length
// (excluding the terminator) of the string within the cursor's buffer and
// advances past the terminating NUL. The caller slices the buffer itself
// (via Buffer()) if it needs the bytes - the reader never allocates.
func (c *Cursor) String() (start, length int, err error) {
	start = c.pos
	idx := bytes.IndexByte(c.buf[c.pos:], 0)
	if idx < 0 {
		return 0, 0, errors.Errorf(errors.EOF, "unterminated string at offset %d", start)
	}
	length = idx
	c.pos += idx + 1
	return start, length, nil
}

// ULEB128 reads an unsigned LEB128 value. It fails with errors.Overflow if
// the encoded value does not fit in 64 bits, rather than silently
// truncating it as leb128.DecodeULEB128 does when handed a slice directly.
func (c *Cursor) ULEB128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := c.U8()
		if err != nil {
			return 0, err
		}
		if leb128.Overflowed(shift, b) {
			return 0, errors.Errorf(errors.Overflow, "ULEB128 value at offset %d exceeds 64 bits", c.pos-1)
		}
		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// SLEB128 reads a signed LEB128 value, failing with errors.Overflow under
// the same condition as ULEB128.
func (c *Cursor) SLEB128() (int64, error) {
	var result int64
	var shift uint
	var b uint8
	var err error
	for {
		b, err = c.U8()
		if err != nil {
			return 0, err
		}
		if leb128.Overflowed(shift, b) {
			return 0, errors.Errorf(errors.Overflow, "SLEB128 value at offset %d exceeds 64 bits", c.pos-1)
		}
		if shift < 64 {
			result |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -(int64(1) << shift)
	}
	return result, nil
}

// SkipULEB128 advances past one ULEB128-encoded value without materialising
// it - used by the abbrev-compiled byte-code for attributes we don't index.
func (c *Cursor) SkipULEB128() error {
	_, err := c.ULEB128()
	return err
}

// SkipCString advances past one NUL-terminated string without retaining
// its offset.
func (c *Cursor) SkipCString() error {
	_, _, err := c.String()
	return err
}
