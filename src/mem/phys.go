// Package mem implements the physical-memory and page-table
// primitives spec.md section 6 lists as external collaborators
// (page_alloc, alloc_pgdir, map_page, destroy_pgdir, get_pa,
// is_mapped_page); pa2page has no counterpart here. The process
// subsystem treats these as a
// named interface only; this package gives them the minimal concrete
// body needed to make the rest of the module runnable and testable.
//
// Grounded on mem/mem.go's Physmem_t (free-list-backed frame
// allocator with refcounting) and mem/dmap.go's level-shift
// arithmetic, collapsed from per-CPU free lists to one shared free
// list since spec.md section 5 assumes a single hart.
package mem

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"defs"
)

// Pa_t is a physical address.
type Pa_t uintptr

const (
	pageSize  = defs.PageSize
	pageShift = defs.PageShift
)

// Arena owns all physical memory available to the kernel: the
// identity-mapped DRAM window described in spec.md section 3 (the
// template directory's "identity maps for physical DRAM"). Pages are
// handed out with a refcount, mirroring Physmem_t.Refup/Refdown.
type Arena struct {
	buf      []byte
	base     Pa_t
	npages   int
	refcnt   []int32
	freelist []int32
}

// NewArena reserves size bytes of anonymous memory to back the
// kernel's simulated physical DRAM, the software analogue of the
// physical frames original_source's env_init identity-maps at
// KERNBASE. size must be a multiple of the page size.
func NewArena(base Pa_t, size int) (*Arena, error) {
	if size%pageSize != 0 {
		panic("arena size must be page aligned")
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	n := size / pageSize
	a := &Arena{
		buf:    buf,
		base:   base,
		npages: n,
		refcnt: make([]int32, n),
	}
	a.freelist = make([]int32, n)
	for i := 0; i < n; i++ {
		a.freelist[i] = int32(i)
	}
	return a, nil
}

// Close releases the backing mmap region.
func (a *Arena) Close() error {
	return unix.Munmap(a.buf)
}

func (a *Arena) indexOf(pa Pa_t) int {
	idx := int((pa - a.base) >> pageShift)
	if idx < 0 || idx >= a.npages {
		panic("physical address out of arena range")
	}
	return idx
}

func (a *Arena) pa(idx int) Pa_t {
	return a.base + Pa_t(idx)<<pageShift
}

// Bytes returns the byte slice backing the page at pa.
func (a *Arena) Bytes(pa Pa_t) []byte {
	idx := a.indexOf(pa)
	off := idx * pageSize
	return a.buf[off : off+pageSize]
}

// pmap views the page at pa as an array of page-table entries, the
// same unsafe-cast-over-the-direct-map trick mem.go's pg2pmap uses.
func (a *Arena) pmap(pa Pa_t) *[pageSize / 8]Pa_t {
	idx := a.indexOf(pa)
	off := idx * pageSize
	return (*[pageSize / 8]Pa_t)(unsafe.Pointer(&a.buf[off]))
}

// Alloc returns a freshly zeroed page with refcount 1, or a VMError
// if the arena is exhausted.
func (a *Arena) Alloc() (Pa_t, error) {
	if len(a.freelist) == 0 {
		return 0, defs.New(defs.VMError)
	}
	n := len(a.freelist) - 1
	idx := a.freelist[n]
	a.freelist = a.freelist[:n]
	a.refcnt[idx] = 1
	pa := a.pa(int(idx))
	b := a.Bytes(pa)
	for i := range b {
		b[i] = 0
	}
	return pa, nil
}

// Refup increments the reference count of the page at pa.
func (a *Arena) Refup(pa Pa_t) {
	idx := a.indexOf(pa)
	if a.refcnt[idx] <= 0 {
		panic("refup of unreferenced page")
	}
	a.refcnt[idx]++
}

// Refdown decrements the reference count of the page at pa, returning
// it to the free list and reporting true when the count reaches zero.
func (a *Arena) Refdown(pa Pa_t) bool {
	idx := a.indexOf(pa)
	if a.refcnt[idx] <= 0 {
		panic("refdown of unreferenced page")
	}
	a.refcnt[idx]--
	if a.refcnt[idx] == 0 {
		a.freelist = append(a.freelist, int32(idx))
		return true
	}
	return false
}

// Refcnt reports the current reference count of the page at pa.
func (a *Arena) Refcnt(pa Pa_t) int {
	return int(a.refcnt[a.indexOf(pa)])
}

// FreePages returns the number of pages still on the free list, used
// by tests asserting env_alloc/env_free leaves the arena unchanged.
func (a *Arena) FreePages() int {
	return len(a.freelist)
}
