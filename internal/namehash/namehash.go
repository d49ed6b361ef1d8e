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

// Package namehash implements a fixed-capacity, open-addressed hash table
// that many DIE-walking goroutines insert into concurrently without a
// lock. Each slot publishes its name pointer with a compare-exchange, then
// its tag with a release store; readers spin-acquire the tag to know when
// a slot they've found the name in is safe to read the rest of.
package namehash

import (
	"sync/atomic"

	"github.com/jetsetilly/dwarfidx/errors"
)

// Capacity is fixed at 2^17 entries; deletions never occur, so this is
// also the hard ceiling on distinct (name, tag, file_fp) triples the index
// can ever hold.
const (
	capacityBits = 17
	Capacity     = 1 << capacityBits
	mask         = Capacity - 1
)

type slot struct {
	name atomic.Pointer[string]
	tag  atomic.Uint32 // 0 until published; holds (tag | 0x100) so a genuine tag of 0 is still distinguishable from "unpublished"
	fp   uint64
	cu   uint32
	ptr  uint64
}

// Entry is a published name-hash entry, returned by Find.
type Entry struct {
	Name string
	Tag  uint8
	Fp   uint64
	CU   uint32
	Ptr  uint64
}

// Table is the fixed-capacity name hash. The zero value is ready to use.
type Table struct {
	slots [Capacity]slot
}

// djbx33a is the classic `hash = hash*33 + c` string hash.
func djbx33a(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}

const published = 0x100

// Insert publishes (name, tag, fp, cu, ptr). If an equal (name, tag, fp)
// entry already exists, Insert returns success without adding a duplicate.
// Insert returns errors.OOM if the table is full.
func (t *Table) Insert(name string, tag uint8, fp uint64, cu uint32, ptr uint64) error {
	i := djbx33a(name) & mask
	for probed := 0; probed < Capacity; probed++ {
		s := &t.slots[i]

		existing := s.name.Load()
		if existing == nil {
			if s.name.CompareAndSwap(nil, &name) {
				s.fp = fp
				s.cu = cu
				s.ptr = ptr
				s.tag.Store(uint32(tag) | published)
				return nil
			}
			// lost the race - fall through to the occupied-slot check below,
			// re-reading whatever the winner published.
			existing = s.name.Load()
		}

		for s.tag.Load() == 0 {
			// winner hasn't finished publishing yet; spin-acquire.
		}
		if *existing == name && s.fp == fp && uint8(s.tag.Load()) == tag {
			return nil
		}

		i = (i + 1) & mask
	}
	return errors.Errorf(errors.OOM, "name hash is full (capacity %d)", Capacity)
}

// Len reports the number of published entries. It scans every slot, so it
// is meant for an occasional stats snapshot, not the hot insert/find path.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].name.Load() != nil {
			n++
		}
	}
	return n
}

// Find probes for a (name, tag) pair. tag 0 matches any tag. It returns
// every matching entry - duplicates by file_fp are a legitimate "same
// symbol name declared in two translation units" situation, not merged.
func (t *Table) Find(name string, tag uint8) []Entry {
	var out []Entry
	i := djbx33a(name) & mask
	for probed := 0; probed < Capacity; probed++ {
		s := &t.slots[i]
		existing := s.name.Load()
		if existing == nil {
			return out
		}
		for s.tag.Load() == 0 {
		}
		entryTag := uint8(s.tag.Load())
		if *existing == name && (tag == 0 || entryTag == tag) {
			out = append(out, Entry{Name: *existing, Tag: entryTag, Fp: s.fp, CU: s.cu, Ptr: s.ptr})
		}
		i = (i + 1) & mask
	}
	return out
}
