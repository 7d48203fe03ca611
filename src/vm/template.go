// Package vm builds the template ("base_pgdir" in the original source)
// and per-process page directories on top of the mem package's page-
// table primitives. Grounded on original_source/kern/env.c's env_init
// (template construction) and env_setup_vm (per-process directory).
package vm

import (
	"defs"
	"mem"
)

// Template is the boot-time kernel page directory every process
// directory is stitched from: the identity-mapped DRAM window, the
// VirtIO MMIO remap, and the read-only PAGES/ENVS introspection
// windows. It is built once by BuildTemplate and never mutated or
// freed afterward.
type Template struct {
	Root mem.Pa_t
}

// BuildTemplate allocates and populates the template directory,
// mirroring env_init's map_pages calls in order: the PAGES array, the
// ENVS array (both PTE_R|PTE_G|PTE_U leaves), then the DRAM identity
// map and the VirtIO MMIO remap (both PTE_R|PTE_W|PTE_X, kernel-only —
// no PteU, since user code never touches these directly except through
// the PAGES/ENVS windows). The top-level entries covering all four
// regions are then marked PteG, so every copy stitched into a process
// directory is skipped by DestroyPgdir rather than recursed into and
// freed.
func BuildTemplate(a *mem.Arena, pagesPA, envsPA mem.Pa_t, pagesLen, envsLen int) (*Template, error) {
	root, err := a.AllocPgdir()
	if err != nil {
		return nil, err
	}
	t := &Template{Root: root}

	if err := mapRange(a, root, defs.PAGES, pagesPA, pagesLen, mem.PteR|mem.PteG|mem.PteU); err != nil {
		return nil, err
	}
	if err := mapRange(a, root, defs.ENVS, envsPA, envsLen, mem.PteR|mem.PteG|mem.PteU); err != nil {
		return nil, err
	}
	if err := mapRange(a, root, defs.KernBase, mem.Pa_t(defs.KernBase), defs.MemorySize, mem.PteR|mem.PteW|mem.PteX); err != nil {
		return nil, err
	}
	if err := mapRange(a, root, defs.VirtioMMIOVirt, mem.Pa_t(defs.VirtioMMIOPhys), defs.VirtioMMIOSize, mem.PteR|mem.PteW|mem.PteX); err != nil {
		return nil, err
	}
	for _, va := range []uintptr{defs.PAGES, defs.ENVS, defs.KernBase, defs.VirtioMMIOVirt} {
		idx := mem.TopIndexOf(va)
		a.SetTopLevelEntry(root, idx, a.TopLevelEntry(root, idx)|mem.PteG)
	}
	return t, nil
}

// mapRange is map_pages: map_page repeated one page at a time across
// size bytes, rounded up to a page boundary as the original does with
// ROUND(..., PAGE_SIZE).
func mapRange(a *mem.Arena, root mem.Pa_t, va uintptr, pa mem.Pa_t, size int, perm mem.Pa_t) error {
	const pg = defs.PageSize
	n := (size + pg - 1) / pg
	for i := 0; i < n; i++ {
		off := uintptr(i * pg)
		if err := a.MapPage(root, va+off, pa+mem.Pa_t(off), perm); err != nil {
			return err
		}
	}
	return nil
}
