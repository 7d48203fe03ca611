// Package elf loads a flat ELF executable image into a process's
// address space. Grounded on original_source/kern/env.c's
// load_icode/load_icode_mapper, using the standard library's debug/elf
// parser the way kernel/chentry.go already does for ELF header
// surgery.
package elf

import (
	"bytes"
	stdelf "debug/elf"
	"fmt"

	"defs"
	"mem"
)

// Segment is one PT_LOAD program-header entry, exposed so a caller can
// print the debug_elf-style table without re-parsing the image itself.
type Segment struct {
	Offset, Vaddr, Paddr, Filesz, Memsz uint64
	Flags                                string
}

// Segments parses binary and returns its PT_LOAD program headers, the
// same table debug_elf walks, without mapping anything.
func Segments(binary []byte) ([]Segment, error) {
	f, err := stdelf.NewFile(bytes.NewReader(binary))
	if err != nil {
		return nil, fmt.Errorf("elf: %w", err)
	}
	defer f.Close()

	var segs []Segment
	for _, prog := range f.Progs {
		if prog.Type != stdelf.PT_LOAD {
			continue
		}
		segs = append(segs, Segment{
			Offset: prog.Off,
			Vaddr:  prog.Vaddr,
			Paddr:  prog.Paddr,
			Filesz: prog.Filesz,
			Memsz:  prog.Memsz,
			Flags:  prog.Flags.String(),
		})
	}
	return segs, nil
}

// Load parses binary as an ELF executable, maps every PT_LOAD segment
// into the page table rooted at root page by page (allocating fresh
// user pages and copying in the segment's file bytes, zero-filling the
// bss tail when MemSize exceeds FileSize), and returns the entry
// point — the value load_icode assigns to e->env_tf.sepc.
func Load(a *mem.Arena, root mem.Pa_t, binary []byte) (entry uintptr, err error) {
	f, err := stdelf.NewFile(bytes.NewReader(binary))
	if err != nil {
		return 0, fmt.Errorf("elf: %w", err)
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != stdelf.PT_LOAD {
			continue
		}
		if err := loadSegment(a, root, prog, binary); err != nil {
			return 0, err
		}
	}
	return uintptr(f.Entry), nil
}

func loadSegment(a *mem.Arena, root mem.Pa_t, prog *stdelf.Prog, binary []byte) error {
	perm := segPerm(prog.Flags)

	base := prog.Vaddr
	filesz := prog.Filesz
	memsz := prog.Memsz
	src := binary[prog.Off : prog.Off+filesz]

	for off := uint64(0); off < memsz; {
		va := uintptr(base + off)
		pageVA := va &^ (defs.PageSize - 1)

		if !a.IsMappedPage(root, pageVA) {
			pa, err := a.Alloc()
			if err != nil {
				return err
			}
			if err := a.MapPage(root, pageVA, pa, perm); err != nil {
				return err
			}
		}

		pa, ok := a.GetPA(root, pageVA)
		if !ok {
			return fmt.Errorf("elf: page just mapped at %#x is not present", pageVA)
		}
		dst := a.Bytes(pa)

		pageOff := int(va & (defs.PageSize - 1))
		n := defs.PageSize - pageOff
		if rem := memsz - off; uint64(n) > rem {
			n = int(rem)
		}

		copyFileBytes(dst[pageOff:pageOff+n], src, off, filesz)
		off += uint64(n)
	}
	return nil
}

// copyFileBytes fills dst (n bytes, already sized to fit within one
// page) from src starting at file offset off, leaving any portion past
// filesz zero — the bss tail load_icode_mapper leaves untouched because
// elf_load_seg never calls the mapper with a non-nil src past Filesz.
func copyFileBytes(dst []byte, src []byte, off, filesz uint64) int {
	if off >= filesz {
		return 0
	}
	avail := filesz - off
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	copy(dst, src[off:off+n])
	return int(n)
}

func segPerm(flags stdelf.ProgFlag) mem.Pa_t {
	perm := mem.PteU
	if flags&stdelf.PF_R != 0 {
		perm |= mem.PteR
	}
	if flags&stdelf.PF_W != 0 {
		perm |= mem.PteW
	}
	if flags&stdelf.PF_X != 0 {
		perm |= mem.PteX
	}
	return perm
}
