package reader_test

import (
	"testing"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/reader"
)

func TestFixedWidthReads(t *testing.T) {
	c := reader.New([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a})

	u8, err := c.U8()
	if err != nil || u8 != 0x01 {
		t.Fatalf("U8() = (%#x, %v)", u8, err)
	}
	u16, err := c.U16()
	if err != nil || u16 != 0x0302 {
		t.Fatalf("U16() = (%#x, %v)", u16, err)
	}
	u32, err := c.U32()
	if err != nil || u32 != 0x07060504 {
		t.Fatalf("U32() = (%#x, %v)", u32, err)
	}
	if c.Remaining() != 3 {
		t.Fatalf("Remaining() = %d, want 3", c.Remaining())
	}
}

func TestU64NeedsEightBytes(t *testing.T) {
	c := reader.New([]byte{1, 2, 3})
	if _, err := c.U64(); !errors.Is(err, errors.EOF) {
		t.Fatalf("U64() on short buffer err = %v, want EOF", err)
	}
}

func TestString(t *testing.T) {
	c := reader.New([]byte("hello\x00world"))
	start, length, err := c.String()
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	if got := string(c.Buffer()[start : start+length]); got != "hello" {
		t.Fatalf("String() = %q, want %q", got, "hello")
	}
	if c.Pos() != 6 {
		t.Fatalf("Pos() after String() = %d, want 6 (past the NUL)", c.Pos())
	}
}

func TestStringUnterminated(t *testing.T) {
	c := reader.New([]byte("no terminator"))
	if _, _, err := c.String(); !errors.Is(err, errors.EOF) {
		t.Fatalf("String() on unterminated input err = %v, want EOF", err)
	}
}

func TestULEB128Boundary(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
	}
	for _, c := range cases {
		cur := reader.New(c.in)
		got, err := cur.ULEB128()
		if err != nil {
			t.Fatalf("ULEB128(%#v) error = %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ULEB128(%#v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestULEB128Overflow(t *testing.T) {
	// ten bytes, all continuation bits set: never terminates within 64 bits.
	in := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	cur := reader.New(in)
	_, err := cur.ULEB128()
	if !errors.Is(err, errors.Overflow) {
		t.Fatalf("ULEB128() on ten MSB-set bytes error = %v, want Overflow", err)
	}
}

func TestULEB128TerminatesNormally(t *testing.T) {
	// a nine-byte encoding (63 bits of payload, all of them set) is not an
	// overflow.
	in := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}
	cur := reader.New(in)
	if _, err := cur.ULEB128(); err != nil {
		t.Fatalf("ULEB128() on a value that fits exactly = %v, want nil", err)
	}
}

func TestSLEB128(t *testing.T) {
	cases := []struct {
		in   []byte
		want int64
	}{
		{[]byte{0x02}, 2},
		{[]byte{0x7e}, -2},
		{[]byte{0xff, 0x00}, 127},
		{[]byte{0x81, 0x7f}, -127},
	}
	for _, c := range cases {
		cur := reader.New(c.in)
		got, err := cur.SLEB128()
		if err != nil {
			t.Fatalf("SLEB128(%#v) error = %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("SLEB128(%#v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSeekToOutOfBounds(t *testing.T) {
	c := reader.New([]byte{1, 2, 3})
	if err := c.SeekTo(10); !errors.Is(err, errors.EOF) {
		t.Fatalf("SeekTo(10) error = %v, want EOF", err)
	}
}
