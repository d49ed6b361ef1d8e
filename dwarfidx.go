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

// Package dwarfidx indexes the names declared in a set of ELF object
// files' DWARF debugging information, and answers name lookups against
// that index. It does not expose a walkable DIE/CU/ELF object model -
// Find's results are opaque handles identifying what matched and where.
package dwarfidx

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jetsetilly/dwarfidx/errors"
	"github.com/jetsetilly/dwarfidx/internal/cu"
	"github.com/jetsetilly/dwarfidx/internal/dwalk"
	"github.com/jetsetilly/dwarfidx/internal/elfobj"
	"github.com/jetsetilly/dwarfidx/internal/namehash"
	"github.com/jetsetilly/dwarfidx/logger"
)

// WalkOptions controls the worker-pool size of Add's parallel phases.
type WalkOptions struct {
	// Workers caps the number of goroutines used for the relocation and
	// per-CU indexing phases. Zero means runtime.GOMAXPROCS(0).
	Workers int
}

func (o WalkOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// File is one successfully indexed object file.
type File struct {
	Path string

	elf *elfobj.File
	cus []*cu.Header

	cuObjs map[uint64]*CU // memoized, keyed by CU header offset within .debug_info
}

// CU is one compilation unit of a File, built and memoized lazily by Find.
type CU struct {
	file   *File
	Header *cu.Header

	dies map[uint64]*DIE // memoized, keyed by DIE offset within .debug_info
}

// File returns the CU's owning File.
func (c *CU) File() *File { return c.file }

// DIE is an opaque handle on one indexed debugging-information entry: its
// compilation unit, byte offset, and what matched the query. It is not a
// walkable attribute tree - building that object model is out of scope.
type DIE struct {
	cu     *CU
	Offset uint64
	Name   string
	Tag    uint8
}

// CU returns the DIE's owning compilation unit.
func (d *DIE) CU() *CU { return d.cu }

// Stats is a point-in-time snapshot of an Index's size.
type Stats struct {
	Files      int
	CUs        int
	Entries    int
	LoadFactor float64
}

// Index accumulates DWARF debugging information from ELF object files and
// answers name lookups against it. The zero value is ready to use.
type Index struct {
	Options WalkOptions

	hash  namehash.Table
	files []*File

	// cuRefs maps the global CU id namehash entries carry (assigned
	// sequentially across every Add call) back to the (File, Header) pair
	// that produced it.
	cuRefs []cuRef

	addressSize int
}

type cuRef struct {
	file   *File
	header *cu.Header
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{}
}

// Files returns the paths successfully indexed so far; files with no
// debug information are excluded, per Add.
func (idx *Index) Files() []string {
	out := make([]string, len(idx.files))
	for i, f := range idx.files {
		out[i] = f.Path
	}
	return out
}

// AddressSize returns the address size, in bytes, of the last compilation
// unit seen across every Add call.
func (idx *Index) AddressSize() int { return idx.addressSize }

// Stats returns a snapshot of the index's current size.
func (idx *Index) Stats() Stats {
	n := idx.hash.Len()
	return Stats{
		Files:      len(idx.files),
		CUs:        len(idx.cuRefs),
		Entries:    n,
		LoadFactor: float64(n) / float64(namehash.Capacity),
	}
}

// Add opens, relocates, and indexes each path in turn. Files with no debug
// information are skipped, not treated as an error. Phases run in order:
// mmap and section discovery, parallel relocation across all new files,
// sequential CU enumeration, parallel indexing of the new CUs. If any
// phase fails, the new files are dropped, but hash entries they already
// published are kept - an already-indexed CU from another file may
// reference them, so the hash is never rewound.
func (idx *Index) Add(paths ...string) error {
	filesBefore := len(idx.files)
	cusBefore := len(idx.cuRefs)

	var added []*File
	for _, path := range paths {
		f, err, ok := elfobj.Open(path)
		if err != nil {
			idx.rollback(filesBefore, cusBefore)
			return err
		}
		if !ok {
			logger.Logf(logger.Allow, "dwarfidx", "%s: no usable debug information, skipping", path)
			continue
		}
		added = append(added, &File{Path: path, elf: f, cuObjs: make(map[uint64]*CU)})
	}

	if err := idx.relocate(added); err != nil {
		idx.rollback(filesBefore, cusBefore)
		return err
	}

	for _, f := range added {
		if err := cu.Enumerate(f.elf.Info.Data, func(h *cu.Header) error {
			f.cus = append(f.cus, h)
			idx.addressSize = h.AddressSize
			idx.cuRefs = append(idx.cuRefs, cuRef{file: f, header: h})
			return nil
		}); err != nil {
			idx.rollback(filesBefore, cusBefore)
			return err
		}
	}
	logger.Logf(logger.Allow, "dwarfidx", "enumerated %d compilation units across %d new files", len(idx.cuRefs)-cusBefore, len(added))

	if err := idx.walkNewCUs(cusBefore); err != nil {
		idx.rollback(filesBefore, cusBefore)
		return err
	}

	idx.files = append(idx.files, added...)
	return nil
}

// rollback drops files and CUs added during a failed Add call.
func (idx *Index) rollback(filesBefore, cusBefore int) {
	idx.files = idx.files[:filesBefore]
	idx.cuRefs = idx.cuRefs[:cusBefore]
}

// relocate flattens every new file's relocation entries into a single
// linear index space and applies them across a work-stealing pool.
func (idx *Index) relocate(added []*File) error {
	type unit struct {
		f *File
		s *elfobj.Section
		i int
	}
	var work []unit
	for _, f := range added {
		for _, s := range f.elf.DebugSections() {
			for i := 0; i < f.elf.RelaCount(s); i++ {
				work = append(work, unit{f: f, s: s, i: i})
			}
		}
	}
	if len(work) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(idx.Options.workers())
	for _, u := range work {
		u := u
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return u.f.elf.ApplyReloc(u.s, u.i)
		})
	}
	return g.Wait()
}

// walkNewCUs indexes every CU enumerated since cusBefore, dynamically
// scheduled across a work-stealing pool - CUs vary in size by orders of
// magnitude, so splitting the work statically per worker would leave some
// idle while others are still on their first CU.
func (idx *Index) walkNewCUs(cusBefore int) error {
	newRefs := idx.cuRefs[cusBefore:]
	if len(newRefs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(idx.Options.workers())
	for i, ref := range newRefs {
		cuIndex := uint32(cusBefore + i)
		ref := ref
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sec := dwalk.Sections{
				Abbrev: ref.file.elf.Abbrev.Data,
				Info:   ref.file.elf.Info.Data,
				Line:   ref.file.elf.Line.Data,
				Str:    ref.file.elf.Str.Data,
			}
			return dwalk.Walk(ref.header, sec, &idx.hash, cuIndex)
		})
	}
	return g.Wait()
}

// Find returns every indexed DIE matching name, restricted to tag unless
// tag is 0. It raises errors.NotFound if nothing matches.
func (idx *Index) Find(name string, tag uint8) ([]*DIE, error) {
	matches := idx.hash.Find(name, tag)
	if len(matches) == 0 {
		return nil, errors.Errorf(errors.NotFound, "find(%q): no match", name)
	}

	out := make([]*DIE, 0, len(matches))
	for _, m := range matches {
		if int(m.CU) >= len(idx.cuRefs) {
			continue
		}
		ref := idx.cuRefs[m.CU]
		cuObj := ref.file.cuObject(ref.header)
		out = append(out, cuObj.dieObject(m.Ptr, m.Name, m.Tag))
	}
	if len(out) == 0 {
		return nil, errors.Errorf(errors.NotFound, "find(%q): no match", name)
	}
	return out, nil
}

// cuObject returns f's memoized CU wrapper for h, building it on first use.
func (f *File) cuObject(h *cu.Header) *CU {
	if c, ok := f.cuObjs[h.Offset]; ok {
		return c
	}
	c := &CU{file: f, Header: h, dies: make(map[uint64]*DIE)}
	f.cuObjs[h.Offset] = c
	return c
}

// dieObject returns c's memoized DIE wrapper for the entry at offset,
// building it on first use.
func (c *CU) dieObject(offset uint64, name string, tag uint8) *DIE {
	if d, ok := c.dies[offset]; ok {
		return d
	}
	d := &DIE{cu: c, Offset: offset, Name: name, Tag: tag}
	c.dies[offset] = d
	return d
}

// Close unmaps every indexed file's memory region.
func (idx *Index) Close() error {
	var first error
	for _, f := range idx.files {
		if err := f.elf.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
