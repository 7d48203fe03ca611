package mem

import "defs"

// PTE permission/status bits. Values follow the RISC-V Sv32/Sv39
// encoding named in other_examples' rv64 MMU model (PteV/PteR/PteW/
// PteX/PteU/PteG/PteA/PteD), not biscuit's x86 PTE_* constants, since
// this subsystem targets RISC-V.
const (
	PteV Pa_t = 1 << 0 // valid
	PteR Pa_t = 1 << 1 // readable
	PteW Pa_t = 1 << 2 // writable
	PteX Pa_t = 1 << 3 // executable
	PteU Pa_t = 1 << 4 // user-accessible
	PteG Pa_t = 1 << 5 // global: shared with the template, never freed
	PteA Pa_t = 1 << 6 // accessed
	PteD Pa_t = 1 << 7 // dirty
)

const pteAddrMask = Pa_t(^uint64(pageSize - 1))

// levels is the page-table depth: 2 for Sv32, 3 for Sv39 (spec.md
// section 4.C / section 6's RISCV32 build switch). Each level still
// indexes 512 entries/page, as original_source keeps PN_SHIFT uniform
// across both variants.
func levels() int {
	if defs.Riscv32 {
		return 2
	}
	return 3
}

const entryShift = 9 // 512 entries per page-table page

func vpn(va uintptr, level int) int {
	shift := pageShift + entryShift*level
	return int((va >> uint(shift)) & 0x1ff)
}

// AllocPgdir allocates a fresh, zeroed root page-table page, the
// env_setup_vm collaborator alloc_pgdir.
func (a *Arena) AllocPgdir() (Pa_t, error) {
	return a.Alloc()
}

// walk returns a pointer to the leaf PTE for va within the page table
// rooted at root, allocating intermediate table pages when create is
// true. It never allocates the final leaf page itself — callers
// install the leaf mapping through MapPage.
func (a *Arena) walk(root Pa_t, va uintptr, create bool) (*Pa_t, error) {
	table := root
	for lvl := levels() - 1; lvl > 0; lvl-- {
		pm := a.pmap(table)
		idx := vpn(va, lvl)
		pte := &pm[idx]
		if *pte&PteV == 0 {
			if !create {
				return nil, nil
			}
			child, err := a.Alloc()
			if err != nil {
				return nil, err
			}
			*pte = Pa_t(child)&pteAddrMask | PteV
		}
		table = Pa_t(*pte) & pteAddrMask
	}
	pm := a.pmap(table)
	idx := vpn(va, 0)
	return &pm[idx], nil
}

// MapPage installs a leaf mapping for va -> pa with the given
// permission bits (PteR/PteW/PteX/PteU/PteG as needed; PteV is added
// automatically), allocating any missing intermediate page-table
// pages. It is the env_setup_vm/load_icode_mapper collaborator
// map_page/alloc_page_user.
func (a *Arena) MapPage(root Pa_t, va uintptr, pa Pa_t, perm Pa_t) error {
	pte, err := a.walk(root, va, true)
	if err != nil {
		return err
	}
	*pte = (pa & pteAddrMask) | perm | PteV
	return nil
}

// GetPA translates va through the page table rooted at root, the
// get_pa collaborator. ok is false if no mapping is present.
func (a *Arena) GetPA(root Pa_t, va uintptr) (pa Pa_t, ok bool) {
	pte, err := a.walk(root, va, false)
	if err != nil || pte == nil || *pte&PteV == 0 {
		return 0, false
	}
	off := Pa_t(va) & Pa_t(pageSize-1)
	return (*pte & pteAddrMask) | off, true
}

// IsMappedPage reports whether va has a present leaf mapping, the
// is_mapped_page collaborator used by load_icode_mapper to decide
// whether a fresh page needs to be allocated for a segment.
func (a *Arena) IsMappedPage(root Pa_t, va uintptr) bool {
	pte, err := a.walk(root, va, false)
	return err == nil && pte != nil && *pte&PteV != 0
}

// TopLevelEntry returns the raw top-level PTE at idx within the page
// table rooted at root, used to copy the template's kernel/pages/envs
// window entries into a fresh process directory (spec.md section
// 4.C's "copy from the template directory the top-level entry").
func (a *Arena) TopLevelEntry(root Pa_t, idx int) Pa_t {
	return a.pmap(root)[idx]
}

// SetTopLevelEntry installs raw into the top-level table of root at
// idx, re-marking it valid. Used both to build the template and to
// stitch its entries into every process directory.
func (a *Arena) SetTopLevelEntry(root Pa_t, idx int, raw Pa_t) {
	a.pmap(root)[idx] = raw | PteV
}

// DestroyPgdir releases every page frame owned exclusively by the
// page table rooted at root: its intermediate tables and its leaf
// user pages. Top-level entries marked PteG are shared with the
// template and are skipped, never recursed into or freed — this is
// the destroy_pgdir collaborator env_free relies on, and the
// boundary is exactly the PTE_G marking original_source's env_init
// already uses for the pages/envs window.
func (a *Arena) DestroyPgdir(root Pa_t) {
	a.destroyLevel(root, levels()-1)
	a.Refdown(root)
}

// TopIndexOf returns the top-level page-table index covering va, used
// by vm.SetupVM to find which template entries to copy into a fresh
// process directory without hard-coding indices tied to any one
// address layout.
func TopIndexOf(va uintptr) int {
	return vpn(va, levels()-1)
}

// SelfMapIndex returns the top-level page-table index K such that
// installing pm[K] = root (with read+user permission, no write/execute)
// makes root introspectable through its own page table: walking to
// SelfMapVA() redescends through that same entry at every level, since
// PAGE_TABLE carries nonzero bits only in its own top-level field and
// PnShift is uniform across levels (spec.md section 4.C).
func SelfMapIndex() int {
	return vpn(defs.PageTable, levels()-1)
}

// SelfMapVA is the virtual address PAGE_TABLE + (PAGE_TABLE>>L) +
// (PAGE_TABLE>>2L) through which a process (and, read-only, its own
// user code) can walk its own page table, named directly in spec.md
// section 4.C.
func SelfMapVA() uintptr {
	pt := uintptr(defs.PageTable)
	l := uint(defs.PnShift)
	return pt + (pt >> l) + (pt >> (2 * l))
}

// InstallSelfMap writes the self-map entry into root's top level.
func (a *Arena) InstallSelfMap(root Pa_t) {
	a.SetTopLevelEntry(root, SelfMapIndex(), root|PteR|PteU)
}

func (a *Arena) destroyLevel(table Pa_t, lvl int) {
	pm := a.pmap(table)
	for i := range pm {
		pte := pm[i]
		if pte&PteV == 0 || pte&PteG != 0 {
			continue
		}
		child := Pa_t(pte) & pteAddrMask
		if child == table {
			// self-map: points back to this very table, must not
			// be recursed into or double-freed.
			continue
		}
		if lvl > 0 {
			a.destroyLevel(child, lvl-1)
		}
		a.Refdown(child)
	}
}
