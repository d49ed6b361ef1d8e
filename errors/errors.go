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

// Package errors implements the curated-error pattern: an error value that
// remembers a Kind and a formatted message, so callers can branch on Kind
// without a proliferation of sentinel values, while the rendered message
// chain still reads naturally.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Unknown is the zero Kind; errors not raised by this package report it.
	Unknown Kind = iota
	// EOF indicates the input buffer was exhausted before a read completed.
	EOF
	// DWARFFormat indicates a semantic violation of DWARF encoding rules.
	DWARFFormat
	// ELFFormat indicates a semantic violation of ELF encoding rules.
	ELFFormat
	// Unsupported indicates valid input using a construct this indexer does
	// not implement: 32-bit ELF, big-endian, DW_FORM_indirect, non-sequential
	// abbrev codes, relocation types other than NONE/32/64.
	Unsupported
	// Overflow indicates a LEB128 value that does not fit in 64 bits.
	Overflow
	// OS indicates an open/stat/mmap failure; the wrapped error carries the
	// errno and path.
	OS
	// OOM indicates the name hash has no empty slot left to insert into.
	OOM
	// NotFound indicates a find() query matched no entries.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case DWARFFormat:
		return "DWARF_FORMAT"
	case ELFFormat:
		return "ELF_FORMAT"
	case Unsupported:
		return "UNSUPPORTED"
	case Overflow:
		return "OVERFLOW"
	case OS:
		return "OS"
	case OOM:
		return "OOM"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// curated is an implementation of the go language error interface that
// remembers the Kind it was created with alongside a formatted message.
type curated struct {
	kind    Kind
	pattern string
	values  []interface{}
}

// Errorf creates a new curated error of the given kind. Unlike fmt.Errorf
// the pattern is stored, not immediately formatted, so Error() can
// de-duplicate adjacent chain parts when this error wraps another curated
// error with the same rendered text.
func Errorf(kind Kind, pattern string, values ...interface{}) error {
	return curated{
		kind:    kind,
		pattern: pattern,
		values:  values,
	}
}

// Error returns the normalised error message. Normalisation being the
// removal of duplicate adjacent error message parts.
//
// Implements the go language error interface.
func (e curated) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// KindOf returns err's Kind, or Unknown if err was not created by Errorf.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	if e, ok := err.(curated); ok {
		return e.kind
	}
	return Unknown
}

// Is reports whether err is a curated error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Has reports whether err, or any curated error in its values chain, is of
// the given kind.
func Has(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	if !ok {
		return false
	}
	if e.kind == kind {
		return true
	}
	for _, v := range e.values {
		if inner, ok := v.(error); ok {
			if Has(inner, kind) {
				return true
			}
		}
	}
	return false
}
