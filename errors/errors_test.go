package errors_test

import (
	"fmt"
	"testing"

	"github.com/jetsetilly/dwarfidx/errors"
)

func TestKindOf(t *testing.T) {
	err := errors.Errorf(errors.EOF, "unexpected end of %s", "buffer")
	if got := errors.KindOf(err); got != errors.EOF {
		t.Errorf("KindOf() = %s, want EOF", got)
	}
	if !errors.Is(err, errors.EOF) {
		t.Errorf("Is(err, EOF) = false, want true")
	}
	if errors.Is(err, errors.DWARFFormat) {
		t.Errorf("Is(err, DWARF_FORMAT) = true, want false")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := errors.KindOf(nil); got != errors.Unknown {
		t.Errorf("KindOf(nil) = %s, want Unknown", got)
	}
	if got := errors.KindOf(fmt.Errorf("plain error")); got != errors.Unknown {
		t.Errorf("KindOf(plain error) = %s, want Unknown", got)
	}
}

func TestHasWrapped(t *testing.T) {
	inner := errors.Errorf(errors.Overflow, "ULEB128 value exceeds 64 bits")
	outer := errors.Errorf(errors.DWARFFormat, "reading abbrev table: %v", inner)

	if !errors.Has(outer, errors.Overflow) {
		t.Errorf("Has(outer, Overflow) = false, want true")
	}
	if errors.Is(outer, errors.Overflow) {
		t.Errorf("Is(outer, Overflow) = true, want false (only the head is DWARFFormat)")
	}
}

func TestErrorDeduplication(t *testing.T) {
	inner := errors.Errorf(errors.EOF, "EOF")
	outer := errors.Errorf(errors.EOF, "EOF: %v", inner)

	if got, want := outer.Error(), "EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		kind errors.Kind
		want string
	}{
		{errors.EOF, "EOF"},
		{errors.DWARFFormat, "DWARF_FORMAT"},
		{errors.ELFFormat, "ELF_FORMAT"},
		{errors.Unsupported, "UNSUPPORTED"},
		{errors.Overflow, "OVERFLOW"},
		{errors.OS, "OS"},
		{errors.OOM, "OOM"},
		{errors.NotFound, "NOT_FOUND"},
		{errors.Unknown, "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", c.kind, got, c.want)
		}
	}
}
